package execshell_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/codexec/internal/execshell"
)

type capturingProcessObserver struct {
	startedCommand  execshell.ShellCommand
	startedPID      int
	finishedPID     int
	startedNotified bool
}

func (observer *capturingProcessObserver) ProcessStarted(command execshell.ShellCommand, processID int) {
	observer.startedCommand = command
	observer.startedPID = processID
	observer.startedNotified = true
}

func (observer *capturingProcessObserver) ProcessFinished(processID int) {
	observer.finishedPID = processID
}

func TestOSCommandRunnerCapturesProcessIdentifier(testInstance *testing.T) {
	runner := execshell.NewOSCommandRunner()

	executionResult, runError := runner.Run(context.Background(), execshell.ShellCommand{
		Name:    execshell.CommandName("sh"),
		Details: execshell.CommandDetails{Arguments: []string{"-c", "echo ready"}},
	})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, "ready\n", executionResult.StandardOutput)
	require.Positive(testInstance, executionResult.ProcessID)
}

func TestOSCommandRunnerNotifiesObserver(testInstance *testing.T) {
	observer := &capturingProcessObserver{}
	runner := execshell.NewOSCommandRunnerWithObserver(observer)

	executionResult, runError := runner.Run(context.Background(), execshell.ShellCommand{
		Name:    execshell.CommandName("sh"),
		Details: execshell.CommandDetails{Arguments: []string{"-c", "true"}},
	})
	require.NoError(testInstance, runError)
	require.True(testInstance, observer.startedNotified)
	require.Equal(testInstance, executionResult.ProcessID, observer.startedPID)
	require.Equal(testInstance, observer.startedPID, observer.finishedPID)
	require.Equal(testInstance, execshell.CommandName("sh"), observer.startedCommand.Name)
}

func TestOSCommandRunnerStartFailure(testInstance *testing.T) {
	observer := &capturingProcessObserver{}
	runner := execshell.NewOSCommandRunnerWithObserver(observer)

	_, runError := runner.Run(context.Background(), execshell.ShellCommand{
		Name: execshell.CommandName("definitely-not-an-executable-on-this-host"),
	})
	require.Error(testInstance, runError)
	require.False(testInstance, observer.startedNotified)
}
