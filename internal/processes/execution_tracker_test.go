package processes_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tyemirov/codexec/internal/execshell"
	"github.com/tyemirov/codexec/internal/processes"
)

func TestExecutionTrackerTracksCodexProcesses(testInstance *testing.T) {
	tracker := processes.NewTrackerWithPath(filepath.Join(testInstance.TempDir(), "pids.json"))
	executionTracker := processes.NewExecutionTracker(tracker, "release pipeline", zap.NewNop())

	executionTracker.ProcessStarted(execshell.ShellCommand{
		Name:    execshell.CommandCodex,
		Details: execshell.CommandDetails{WorkingDirectory: "/tmp/project"},
	}, 4242)

	tracked := tracker.Tracked()
	require.Len(testInstance, tracked, 1)
	require.Equal(testInstance, "release pipeline", tracked["4242"].Task)
	require.Equal(testInstance, "/tmp/project", tracked["4242"].WorkingDirectory)

	executionTracker.ProcessFinished(4242)
	require.Empty(testInstance, tracker.Tracked())
}

func TestExecutionTrackerIgnoresNonCodexCommands(testInstance *testing.T) {
	tracker := processes.NewTrackerWithPath(filepath.Join(testInstance.TempDir(), "pids.json"))
	executionTracker := processes.NewExecutionTracker(tracker, "release pipeline", zap.NewNop())

	executionTracker.ProcessStarted(execshell.ShellCommand{Name: execshell.CommandGit}, 99)
	require.Empty(testInstance, tracker.Tracked())
}

func TestExecutionTrackerFinishWithoutStart(testInstance *testing.T) {
	tracker := processes.NewTrackerWithPath(filepath.Join(testInstance.TempDir(), "pids.json"))
	executionTracker := processes.NewExecutionTracker(tracker, "release pipeline", zap.NewNop())

	executionTracker.ProcessFinished(314)
	require.Empty(testInstance, tracker.Tracked())
}
