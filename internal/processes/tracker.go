package processes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	trackerDirectoryNameConstant        = ".codexec"
	trackerFileNameConstant             = "pids.json"
	trackerFilePermissionsConstant      = 0o644
	trackerDirectoryPermissionsConstant = 0o755
	trackerWriteErrorTemplateConstant   = "failed to persist tracked pids: %w"
	trackerHomeErrorTemplateConstant    = "failed to resolve home directory: %w"
	trackedStatusActiveConstant         = "active"
)

// TrackedProcess describes a codex process the tracker is following.
type TrackedProcess struct {
	Task             string    `json:"task"`
	WorkingDirectory string    `json:"working_directory,omitempty"`
	Started          time.Time `json:"started"`
	Status           string    `json:"status"`
}

// Tracker persists spawned codex process identifiers across invocations.
type Tracker struct {
	trackerFilePath string
	trackedByPID    map[string]TrackedProcess
}

// NewTracker constructs a Tracker rooted in the user's home directory.
func NewTracker() (*Tracker, error) {
	homeDirectory, homeError := os.UserHomeDir()
	if homeError != nil {
		return nil, fmt.Errorf(trackerHomeErrorTemplateConstant, homeError)
	}
	return NewTrackerWithPath(filepath.Join(homeDirectory, trackerDirectoryNameConstant, trackerFileNameConstant)), nil
}

// NewTrackerWithPath constructs a Tracker persisting to the provided file path.
func NewTrackerWithPath(trackerFilePath string) *Tracker {
	tracker := &Tracker{
		trackerFilePath: trackerFilePath,
		trackedByPID:    map[string]TrackedProcess{},
	}
	tracker.load()
	return tracker
}

func (tracker *Tracker) load() {
	contentBytes, readError := os.ReadFile(tracker.trackerFilePath)
	if readError != nil {
		return
	}

	loaded := map[string]TrackedProcess{}
	if unmarshalError := json.Unmarshal(contentBytes, &loaded); unmarshalError != nil {
		return
	}
	tracker.trackedByPID = loaded
}

func (tracker *Tracker) save() error {
	if directoryError := os.MkdirAll(filepath.Dir(tracker.trackerFilePath), trackerDirectoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(trackerWriteErrorTemplateConstant, directoryError)
	}

	contentBytes, marshalError := json.MarshalIndent(tracker.trackedByPID, "", "  ")
	if marshalError != nil {
		return fmt.Errorf(trackerWriteErrorTemplateConstant, marshalError)
	}

	if writeError := os.WriteFile(tracker.trackerFilePath, contentBytes, trackerFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(trackerWriteErrorTemplateConstant, writeError)
	}
	return nil
}

// Track registers a process identifier with its originating task.
func (tracker *Tracker) Track(processID int32, task string, workingDirectory string) error {
	tracker.trackedByPID[strconv.Itoa(int(processID))] = TrackedProcess{
		Task:             task,
		WorkingDirectory: workingDirectory,
		Started:          time.Now(),
		Status:           trackedStatusActiveConstant,
	}
	return tracker.save()
}

// Forget removes a process identifier from tracking.
func (tracker *Tracker) Forget(processID int32) error {
	key := strconv.Itoa(int(processID))
	if _, tracked := tracker.trackedByPID[key]; !tracked {
		return nil
	}
	delete(tracker.trackedByPID, key)
	return tracker.save()
}

// Tracked returns a copy of the tracked process table keyed by process identifier.
func (tracker *Tracker) Tracked() map[string]TrackedProcess {
	copied := make(map[string]TrackedProcess, len(tracker.trackedByPID))
	for processKey, trackedProcess := range tracker.trackedByPID {
		copied[processKey] = trackedProcess
	}
	return copied
}
