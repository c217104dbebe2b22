package quick_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tyemirov/codexec/cmd/cli/quick"
	"github.com/tyemirov/codexec/internal/orchestrator"
)

type fakeCodexRunner struct {
	outcome  orchestrator.InstructionOutcome
	requests []orchestrator.InstructionRequest
}

func (runner *fakeCodexRunner) RunInstruction(_ context.Context, request orchestrator.InstructionRequest) (orchestrator.InstructionOutcome, error) {
	runner.requests = append(runner.requests, request)
	return runner.outcome, nil
}

func (runner *fakeCodexRunner) VerifyAvailable(context.Context) error {
	return nil
}

func buildQuickCommand(testInstance *testing.T, runner *fakeCodexRunner, configuration quick.CommandConfiguration) (*cobra.Command, *bytes.Buffer) {
	testInstance.Helper()

	builder := &quick.CommandBuilder{
		LoggerProvider:        func() *zap.Logger { return zap.NewNop() },
		ConfigurationProvider: func() quick.CommandConfiguration { return configuration },
		CodexRunnerFactory: func(*zap.Logger, bool) (orchestrator.CodexRunner, error) {
			return runner, nil
		},
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetErr(outputBuffer)
	command.SetContext(context.Background())
	return command, outputBuffer
}

func TestQuickCommandJoinsArgumentsIntoInstruction(testInstance *testing.T) {
	reportDirectory := testInstance.TempDir()
	runner := &fakeCodexRunner{}
	command, outputBuffer := buildQuickCommand(testInstance, runner, quick.CommandConfiguration{
		StepTimeoutSeconds: 30,
		ReportDirectory:    reportDirectory,
	})

	runError := command.RunE(command, []string{"add", "a", "parser", "test"})
	require.NoError(testInstance, runError)
	require.Len(testInstance, runner.requests, 1)
	require.Equal(testInstance, "add a parser test", runner.requests[0].Instruction)

	reportEntries, globError := filepath.Glob(filepath.Join(reportDirectory, "codex_report_*.json"))
	require.NoError(testInstance, globError)
	require.Len(testInstance, reportEntries, 1)
	require.Contains(testInstance, outputBuffer.String(), "REPORT_WRITTEN")
}

func TestQuickCommandPassesContextFlag(testInstance *testing.T) {
	runner := &fakeCodexRunner{}
	command, _ := buildQuickCommand(testInstance, runner, quick.CommandConfiguration{
		StepTimeoutSeconds: 30,
		ReportDirectory:    testInstance.TempDir(),
	})
	require.NoError(testInstance, command.Flags().Set("context", "project uses cobra"))

	require.NoError(testInstance, command.RunE(command, []string{"extend the cli"}))
	require.Len(testInstance, runner.requests, 1)
	require.Equal(testInstance, "project uses cobra", runner.requests[0].Context)
}

func TestQuickCommandRequiresInstruction(testInstance *testing.T) {
	command, _ := buildQuickCommand(testInstance, &fakeCodexRunner{}, quick.DefaultCommandConfiguration())

	runError := command.RunE(command, nil)
	require.EqualError(testInstance, runError, "instruction text required")
}

func TestQuickCommandReturnsErrorOnFailure(testInstance *testing.T) {
	runner := &fakeCodexRunner{outcome: orchestrator.InstructionOutcome{ExitCode: 1, StandardError: "boom"}}
	command, _ := buildQuickCommand(testInstance, runner, quick.CommandConfiguration{
		StepTimeoutSeconds: 30,
		ReportDirectory:    testInstance.TempDir(),
	})

	runError := command.RunE(command, []string{"break the build"})
	require.EqualError(testInstance, runError, "instruction failed")
}

func TestQuickCommandReportDirectoryFlagOverride(testInstance *testing.T) {
	overrideDirectory := testInstance.TempDir()
	runner := &fakeCodexRunner{}
	command, _ := buildQuickCommand(testInstance, runner, quick.CommandConfiguration{
		StepTimeoutSeconds: 30,
		ReportDirectory:    testInstance.TempDir(),
	})
	require.NoError(testInstance, command.Flags().Set("report-dir", overrideDirectory))

	require.NoError(testInstance, command.RunE(command, []string{"write docs"}))

	reportEntries, globError := filepath.Glob(filepath.Join(overrideDirectory, "codex_report_*.json"))
	require.NoError(testInstance, globError)
	require.Len(testInstance, reportEntries, 1)
}

func TestQuickCommandConfigurationSanitize(testInstance *testing.T) {
	sanitized := quick.CommandConfiguration{StepTimeoutSeconds: 0, ReportDirectory: " "}.Sanitize()
	require.Equal(testInstance, 300, sanitized.StepTimeoutSeconds)
	require.Equal(testInstance, ".", sanitized.ReportDirectory)
}
