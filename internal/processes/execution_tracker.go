package processes

import (
	"go.uber.org/zap"

	"github.com/tyemirov/codexec/internal/execshell"
)

const (
	trackFailedLogMessageConstant  = "failed to track codex process"
	forgetFailedLogMessageConstant = "failed to forget codex process"
	processIDLogFieldConstant      = "pid"
	taskLogFieldConstant           = "task"
)

// ExecutionTracker records codex process lifecycles in a Tracker so running
// delegations remain discoverable across invocations. Non-codex commands are
// ignored.
type ExecutionTracker struct {
	tracker *Tracker
	task    string
	logger  *zap.Logger
}

var _ execshell.ProcessObserver = (*ExecutionTracker)(nil)

// NewExecutionTracker constructs an ExecutionTracker labelling tracked
// processes with the provided task description.
func NewExecutionTracker(tracker *Tracker, task string, logger *zap.Logger) *ExecutionTracker {
	return &ExecutionTracker{tracker: tracker, task: task, logger: logger}
}

// ProcessStarted registers codex processes with the tracker.
func (executionTracker *ExecutionTracker) ProcessStarted(command execshell.ShellCommand, processID int) {
	if command.Name != execshell.CommandCodex {
		return
	}
	trackError := executionTracker.tracker.Track(int32(processID), executionTracker.task, command.Details.WorkingDirectory)
	if trackError != nil && executionTracker.logger != nil {
		executionTracker.logger.Warn(trackFailedLogMessageConstant,
			zap.Int(processIDLogFieldConstant, processID),
			zap.String(taskLogFieldConstant, executionTracker.task),
			zap.Error(trackError),
		)
	}
}

// ProcessFinished removes the process from the tracker. Untracked process
// identifiers are ignored.
func (executionTracker *ExecutionTracker) ProcessFinished(processID int) {
	forgetError := executionTracker.tracker.Forget(int32(processID))
	if forgetError != nil && executionTracker.logger != nil {
		executionTracker.logger.Warn(forgetFailedLogMessageConstant,
			zap.Int(processIDLogFieldConstant, processID),
			zap.Error(forgetError),
		)
	}
}
