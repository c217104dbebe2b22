// Package sessions discovers codex session transcripts and manages execution checkpoints.
package sessions

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	sessionDirectoryNameConstant         = ".codex"
	sessionSubdirectoryNameConstant      = "sessions"
	sessionFileExtensionConstant         = ".jsonl"
	sessionHomeErrorTemplateConstant     = "failed to resolve home directory: %w"
	workingDirectoryTagTemplateConstant  = "<cwd>%s</cwd>"
	workingDirectoryJSONTemplateConstant = "\"cwd\":\"%s\""
	bytesPerMegabyteConstant             = 1024 * 1024
	userRoleMarkerConstant               = "\"role\":\"user\""
	assistantRoleMarkerConstant          = "\"role\":\"assistant\""
	contextMarkerConstant                = "context"
)

// SessionInfo summarizes one session transcript file.
type SessionInfo struct {
	FilePath      string    `json:"file"`
	SizeMegabytes float64   `json:"size_mb"`
	Modified      time.Time `json:"modified"`
	Lines         int       `json:"lines"`
	Messages      int       `json:"messages"`
	HasContext    bool      `json:"has_context"`
}

// Discovery locates session transcript files on disk.
type Discovery struct {
	sessionDirectory string
}

// NewDiscovery constructs a Discovery rooted in the default codex session directory.
func NewDiscovery() (*Discovery, error) {
	homeDirectory, homeError := os.UserHomeDir()
	if homeError != nil {
		return nil, fmt.Errorf(sessionHomeErrorTemplateConstant, homeError)
	}
	return NewDiscoveryWithDirectory(filepath.Join(homeDirectory, sessionDirectoryNameConstant, sessionSubdirectoryNameConstant)), nil
}

// NewDiscoveryWithDirectory constructs a Discovery scanning the provided directory.
func NewDiscoveryWithDirectory(sessionDirectory string) *Discovery {
	return &Discovery{sessionDirectory: sessionDirectory}
}

// ListSessions returns every session transcript, newest first.
//
// When workingDirectory is non-empty only transcripts referencing that
// directory are returned. Session files live in nested date folders, so the
// scan walks the whole tree.
func (discovery *Discovery) ListSessions(workingDirectory string) ([]string, error) {
	if _, statError := os.Stat(discovery.sessionDirectory); statError != nil {
		return nil, nil
	}

	sessionPaths := make([]string, 0)
	walkError := filepath.WalkDir(discovery.sessionDirectory, func(entryPath string, entry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		if !strings.HasSuffix(entry.Name(), sessionFileExtensionConstant) {
			return nil
		}

		if len(strings.TrimSpace(workingDirectory)) > 0 && !sessionReferencesDirectory(entryPath, workingDirectory) {
			return nil
		}

		sessionPaths = append(sessionPaths, entryPath)
		return nil
	})
	if walkError != nil {
		return nil, walkError
	}

	sort.Slice(sessionPaths, func(firstIndex, secondIndex int) bool {
		return modificationTime(sessionPaths[firstIndex]).After(modificationTime(sessionPaths[secondIndex]))
	})
	return sessionPaths, nil
}

// LatestSession returns the most recently modified session transcript, or empty when none exist.
func (discovery *Discovery) LatestSession(workingDirectory string) (string, error) {
	sessionPaths, listError := discovery.ListSessions(workingDirectory)
	if listError != nil {
		return "", listError
	}
	if len(sessionPaths) == 0 {
		return "", nil
	}
	return sessionPaths[0], nil
}

// SessionInfo inspects a transcript file and summarizes its contents.
func (discovery *Discovery) SessionInfo(sessionPath string) (SessionInfo, error) {
	fileInfo, statError := os.Stat(sessionPath)
	if statError != nil {
		return SessionInfo{}, statError
	}

	info := SessionInfo{
		FilePath:      sessionPath,
		SizeMegabytes: float64(fileInfo.Size()) / bytesPerMegabyteConstant,
		Modified:      fileInfo.ModTime(),
	}

	contentBytes, readError := os.ReadFile(sessionPath)
	if readError != nil {
		return info, nil
	}

	for _, transcriptLine := range strings.Split(string(contentBytes), "\n") {
		if len(transcriptLine) == 0 {
			continue
		}
		info.Lines++
		if strings.Contains(transcriptLine, userRoleMarkerConstant) || strings.Contains(transcriptLine, assistantRoleMarkerConstant) {
			info.Messages++
		}
		if strings.Contains(strings.ToLower(transcriptLine), contextMarkerConstant) {
			info.HasContext = true
		}
	}
	return info, nil
}

func sessionReferencesDirectory(sessionPath string, workingDirectory string) bool {
	contentBytes, readError := os.ReadFile(sessionPath)
	if readError != nil {
		return false
	}
	content := string(contentBytes)
	return strings.Contains(content, fmt.Sprintf(workingDirectoryTagTemplateConstant, workingDirectory)) ||
		strings.Contains(content, fmt.Sprintf(workingDirectoryJSONTemplateConstant, workingDirectory)) ||
		strings.Contains(content, workingDirectory)
}

func modificationTime(filePath string) time.Time {
	fileInfo, statError := os.Stat(filePath)
	if statError != nil {
		return time.Time{}
	}
	return fileInfo.ModTime()
}

type transcriptMessage struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

func parseTranscriptMessage(transcriptLine string) (transcriptMessage, bool) {
	var message transcriptMessage
	if unmarshalError := json.Unmarshal([]byte(transcriptLine), &message); unmarshalError != nil {
		return transcriptMessage{}, false
	}
	return message, true
}
