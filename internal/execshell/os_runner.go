package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const (
	environmentVariableTemplateConstant = "%s=%s"
	commandWaitGracePeriodConstant      = 5 * time.Second
)

// ProcessObserver is notified when a spawned process starts and finishes.
type ProcessObserver interface {
	ProcessStarted(command ShellCommand, processID int)
	ProcessFinished(processID int)
}

// OSCommandRunner executes shell commands using the operating system process API.
type OSCommandRunner struct {
	processObserver ProcessObserver
}

// NewOSCommandRunner constructs an OSCommandRunner instance.
func NewOSCommandRunner() OSCommandRunner {
	return OSCommandRunner{}
}

// NewOSCommandRunnerWithObserver constructs an OSCommandRunner that reports
// process lifecycle boundaries to the provided observer.
func NewOSCommandRunnerWithObserver(observer ProcessObserver) OSCommandRunner {
	return OSCommandRunner{processObserver: observer}
}

// Run executes the provided command and captures its observable results.
func (runner OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}

	executableCommand := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	executableCommand.Dir = command.Details.WorkingDirectory
	executableCommand.Env = mergeEnvironment(command.Details.EnvironmentVariables)
	executableCommand.WaitDelay = commandWaitGracePeriodConstant

	if len(command.Details.StandardInput) > 0 {
		executableCommand.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer
	executableCommand.Stdout = &standardOutputBuffer
	executableCommand.Stderr = &standardErrorBuffer

	if startError := executableCommand.Start(); startError != nil {
		if contextError := executionContext.Err(); contextError != nil {
			return ExecutionResult{}, contextError
		}
		return ExecutionResult{}, startError
	}

	processID := executableCommand.Process.Pid
	if runner.processObserver != nil {
		runner.processObserver.ProcessStarted(command, processID)
	}

	runError := executableCommand.Wait()

	if runner.processObserver != nil {
		runner.processObserver.ProcessFinished(processID)
	}

	executionResult := ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
		ProcessID:      processID,
	}

	if runError == nil {
		return executionResult, nil
	}

	var exitError *exec.ExitError
	if errors.As(runError, &exitError) {
		if contextError := executionContext.Err(); contextError != nil {
			return executionResult, contextError
		}
		executionResult.ExitCode = exitError.ExitCode()
		return executionResult, nil
	}

	if contextError := executionContext.Err(); contextError != nil {
		return executionResult, contextError
	}

	return executionResult, runError
}

func mergeEnvironment(environmentVariables map[string]string) []string {
	if len(environmentVariables) == 0 {
		return os.Environ()
	}

	mergedEnvironment := os.Environ()
	for variableName, variableValue := range environmentVariables {
		mergedEnvironment = append(mergedEnvironment, fmt.Sprintf(environmentVariableTemplateConstant, variableName, variableValue))
	}
	return mergedEnvironment
}
