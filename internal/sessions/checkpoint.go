package sessions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tyemirov/codexec/internal/orchestrator"
)

const (
	checkpointDirectoryNameConstant        = ".codexec"
	checkpointSubdirectoryNameConstant     = "checkpoints"
	checkpointFileNameTemplateConstant     = "checkpoint_%s.json"
	checkpointFileNamePrefixConstant       = "checkpoint_"
	checkpointTimestampLayoutConstant      = "20060102_150405"
	checkpointFilePermissionsConstant      = 0o644
	checkpointDirectoryPermissionsConstant = 0o755
	checkpointWriteErrorTemplateConstant   = "failed to write checkpoint: %w"
	checkpointHomeErrorTemplateConstant    = "failed to resolve home directory: %w"
)

// Checkpoint captures an execution snapshot that a later run can resume from.
type Checkpoint struct {
	Timestamp        time.Time                 `json:"timestamp"`
	WorkingDirectory string                    `json:"working_directory"`
	Task             string                    `json:"task"`
	Plan             orchestrator.Plan         `json:"plan"`
	Results          []orchestrator.StepResult `json:"results"`
	SessionFile      string                    `json:"session_file,omitempty"`
}

// CheckpointStore persists execution checkpoints on disk.
type CheckpointStore struct {
	checkpointDirectory string
}

// NewCheckpointStore constructs a CheckpointStore rooted in the user's home directory.
func NewCheckpointStore() (*CheckpointStore, error) {
	homeDirectory, homeError := os.UserHomeDir()
	if homeError != nil {
		return nil, fmt.Errorf(checkpointHomeErrorTemplateConstant, homeError)
	}
	return NewCheckpointStoreWithDirectory(filepath.Join(homeDirectory, checkpointDirectoryNameConstant, checkpointSubdirectoryNameConstant)), nil
}

// NewCheckpointStoreWithDirectory constructs a CheckpointStore persisting to the provided directory.
func NewCheckpointStoreWithDirectory(checkpointDirectory string) *CheckpointStore {
	return &CheckpointStore{checkpointDirectory: checkpointDirectory}
}

// Save writes the checkpoint and returns the path of the created file.
func (store *CheckpointStore) Save(checkpoint Checkpoint) (string, error) {
	if checkpoint.Timestamp.IsZero() {
		checkpoint.Timestamp = time.Now()
	}

	if directoryError := os.MkdirAll(store.checkpointDirectory, checkpointDirectoryPermissionsConstant); directoryError != nil {
		return "", fmt.Errorf(checkpointWriteErrorTemplateConstant, directoryError)
	}

	contentBytes, marshalError := json.MarshalIndent(checkpoint, "", "  ")
	if marshalError != nil {
		return "", fmt.Errorf(checkpointWriteErrorTemplateConstant, marshalError)
	}

	checkpointFileName := fmt.Sprintf(checkpointFileNameTemplateConstant, checkpoint.Timestamp.Format(checkpointTimestampLayoutConstant))
	checkpointPath := filepath.Join(store.checkpointDirectory, checkpointFileName)
	if writeError := os.WriteFile(checkpointPath, contentBytes, checkpointFilePermissionsConstant); writeError != nil {
		return "", fmt.Errorf(checkpointWriteErrorTemplateConstant, writeError)
	}
	return checkpointPath, nil
}

// LoadLatest returns the newest checkpoint recorded for the provided working directory.
func (store *CheckpointStore) LoadLatest(workingDirectory string) (Checkpoint, bool, error) {
	entries, readError := os.ReadDir(store.checkpointDirectory)
	if readError != nil {
		if os.IsNotExist(readError) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, readError
	}

	type candidateCheckpoint struct {
		checkpoint Checkpoint
		modified   time.Time
	}

	candidates := make([]candidateCheckpoint, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasPrefix(entry.Name(), checkpointFileNamePrefixConstant) {
			continue
		}

		entryPath := filepath.Join(store.checkpointDirectory, entry.Name())
		contentBytes, contentError := os.ReadFile(entryPath)
		if contentError != nil {
			continue
		}

		var checkpoint Checkpoint
		if unmarshalError := json.Unmarshal(contentBytes, &checkpoint); unmarshalError != nil {
			continue
		}
		if len(strings.TrimSpace(workingDirectory)) > 0 && checkpoint.WorkingDirectory != workingDirectory {
			continue
		}

		entryInfo, infoError := entry.Info()
		if infoError != nil {
			continue
		}
		candidates = append(candidates, candidateCheckpoint{checkpoint: checkpoint, modified: entryInfo.ModTime()})
	}

	if len(candidates) == 0 {
		return Checkpoint{}, false, nil
	}

	sort.Slice(candidates, func(firstIndex, secondIndex int) bool {
		return candidates[firstIndex].modified.After(candidates[secondIndex].modified)
	})
	return candidates[0].checkpoint, true, nil
}
