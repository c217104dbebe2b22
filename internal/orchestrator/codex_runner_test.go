package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tyemirov/codexec/internal/execshell"
	"github.com/tyemirov/codexec/internal/orchestrator"
)

type stubCommandRunner struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	waitForDeadline  bool
	recordedCommands []execshell.ShellCommand
}

func (runner *stubCommandRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.recordedCommands = append(runner.recordedCommands, command)
	if runner.waitForDeadline {
		<-executionContext.Done()
		interruptedResult := runner.executionResult
		interruptedResult.ExitCode = -1
		return interruptedResult, executionContext.Err()
	}
	return runner.executionResult, runner.executionError
}

func buildCodexExecutor(testInstance *testing.T, runner execshell.CommandRunner) *orchestrator.CodexExecutor {
	testInstance.Helper()

	shellExecutor, shellError := execshell.NewShellExecutor(zap.NewNop(), runner, false)
	require.NoError(testInstance, shellError)

	codexExecutor, executorError := orchestrator.NewCodexExecutor(shellExecutor)
	require.NoError(testInstance, executorError)
	return codexExecutor
}

func TestNewCodexExecutorRequiresShellExecutor(testInstance *testing.T) {
	_, creationError := orchestrator.NewCodexExecutor(nil)
	require.ErrorIs(testInstance, creationError, orchestrator.ErrShellExecutorNotConfigured)
}

func TestVerifyAvailable(testInstance *testing.T) {
	testInstance.Run("available", func(testInstance *testing.T) {
		runner := &stubCommandRunner{executionResult: execshell.ExecutionResult{StandardOutput: "codex 1.2.3"}}
		codexExecutor := buildCodexExecutor(testInstance, runner)

		require.NoError(testInstance, codexExecutor.VerifyAvailable(context.Background()))
		require.Len(testInstance, runner.recordedCommands, 1)
		require.Equal(testInstance, []string{"--version"}, runner.recordedCommands[0].Details.Arguments)
	})

	testInstance.Run("unavailable", func(testInstance *testing.T) {
		runner := &stubCommandRunner{executionResult: execshell.ExecutionResult{ExitCode: 127}}
		codexExecutor := buildCodexExecutor(testInstance, runner)

		availabilityError := codexExecutor.VerifyAvailable(context.Background())
		require.ErrorIs(testInstance, availabilityError, orchestrator.ErrCodexUnavailable)
	})
}

func TestRunInstructionCommandShape(testInstance *testing.T) {
	runner := &stubCommandRunner{executionResult: execshell.ExecutionResult{StandardOutput: "done"}}
	codexExecutor := buildCodexExecutor(testInstance, runner)

	outcome, runError := codexExecutor.RunInstruction(context.Background(), orchestrator.InstructionRequest{
		Instruction:      "write the parser",
		Context:          "project uses yaml.v3",
		WorkingDirectory: "/tmp/project",
	})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, 0, outcome.ExitCode)
	require.Equal(testInstance, "done", outcome.StandardOutput)
	require.False(testInstance, outcome.TimedOut)

	require.Len(testInstance, runner.recordedCommands, 1)
	recordedCommand := runner.recordedCommands[0]
	require.Equal(testInstance, execshell.CommandCodex, recordedCommand.Name)
	require.Equal(
		testInstance,
		[]string{"exec", "--dangerously-bypass-approvals-and-sandbox", "--skip-git-repo-check", "--json"},
		recordedCommand.Details.Arguments,
	)
	require.Equal(testInstance, "/tmp/project", recordedCommand.Details.WorkingDirectory)

	// The instruction travels over standard input, prefixed with the shared context.
	require.Equal(testInstance, "project uses yaml.v3\n\nwrite the parser", string(recordedCommand.Details.StandardInput))
}

func TestRunInstructionWithoutContextOmitsSeparator(testInstance *testing.T) {
	runner := &stubCommandRunner{}
	codexExecutor := buildCodexExecutor(testInstance, runner)

	_, runError := codexExecutor.RunInstruction(context.Background(), orchestrator.InstructionRequest{Instruction: "  standalone task  "})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, "standalone task", string(runner.recordedCommands[0].Details.StandardInput))
}

func TestRunInstructionFailureCarriesOutput(testInstance *testing.T) {
	runner := &stubCommandRunner{executionResult: execshell.ExecutionResult{
		StandardOutput: "partial",
		StandardError:  "compile error",
		ExitCode:       2,
		ProcessID:      4242,
	}}
	codexExecutor := buildCodexExecutor(testInstance, runner)

	outcome, runError := codexExecutor.RunInstruction(context.Background(), orchestrator.InstructionRequest{Instruction: "build"})
	require.Error(testInstance, runError)
	require.Equal(testInstance, 2, outcome.ExitCode)
	require.Equal(testInstance, "partial", outcome.StandardOutput)
	require.Equal(testInstance, "compile error", outcome.StandardError)
	require.Equal(testInstance, 4242, outcome.ProcessID)
	require.False(testInstance, outcome.TimedOut)
}

func TestRunInstructionCarriesProcessIdentifier(testInstance *testing.T) {
	runner := &stubCommandRunner{executionResult: execshell.ExecutionResult{StandardOutput: "done", ProcessID: 1337}}
	codexExecutor := buildCodexExecutor(testInstance, runner)

	outcome, runError := codexExecutor.RunInstruction(context.Background(), orchestrator.InstructionRequest{Instruction: "task"})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, 1337, outcome.ProcessID)
}

func TestRunInstructionTimeout(testInstance *testing.T) {
	runner := &stubCommandRunner{waitForDeadline: true, executionResult: execshell.ExecutionResult{
		StandardOutput: "progress so far",
		ProcessID:      4242,
	}}
	codexExecutor := buildCodexExecutor(testInstance, runner)

	outcome, runError := codexExecutor.RunInstruction(context.Background(), orchestrator.InstructionRequest{
		Instruction: "slow work",
		Timeout:     25 * time.Millisecond,
	})
	require.Error(testInstance, runError)
	require.True(testInstance, outcome.TimedOut)

	// Output captured before the deadline survives the interruption.
	require.Equal(testInstance, "progress so far", outcome.StandardOutput)
	require.Equal(testInstance, 4242, outcome.ProcessID)
}

func TestRunInstructionInjectsPlainTerminalEnvironment(testInstance *testing.T) {
	runner := &stubCommandRunner{}
	codexExecutor := buildCodexExecutor(testInstance, runner)

	_, runError := codexExecutor.RunInstruction(context.Background(), orchestrator.InstructionRequest{Instruction: "task"})
	require.NoError(testInstance, runError)

	environment := runner.recordedCommands[0].Details.EnvironmentVariables
	require.Equal(testInstance, "1", environment["NO_COLOR"])
	require.Equal(testInstance, "0", environment["FORCE_COLOR"])
	require.Equal(testInstance, "dumb", environment["TERM"])
}
