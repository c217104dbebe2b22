// Package quick assembles the single-instruction execution command.
package quick

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/codexec/internal/events"
	"github.com/tyemirov/codexec/internal/execshell"
	"github.com/tyemirov/codexec/internal/orchestrator"
	"github.com/tyemirov/codexec/internal/processes"
	"github.com/tyemirov/codexec/internal/utils"
	flagutils "github.com/tyemirov/codexec/internal/utils/flags"
)

const (
	commandUseConstant              = "quick <instruction>"
	commandShortDescriptionConstant = "Run a single instruction through the Codex CLI"
	commandLongDescriptionConstant  = "quick wraps a single instruction in a one-step plan, delegates it to the Codex CLI, and writes a JSON execution report."
	commandExampleConstant          = "codexec quick \"add a unit test for the parser\"\n  codexec quick --timeout 120 \"fix the failing build\""

	timeoutFlagNameConstant         = "timeout"
	timeoutFlagDescriptionConstant  = "Instruction timeout in seconds"
	contextFlagNameConstant         = "context"
	contextFlagDescriptionConstant  = "Context text prepended to the instruction"
	reportDirectoryFlagNameConstant = "report-dir"
	reportDirectoryFlagDescription  = "Directory for the JSON execution report"

	instructionRequiredMessageConstant = "instruction text required"
	writeReportErrorTemplateConstant   = "unable to write execution report: %w"
	quickStepFailedMessageConstant     = "instruction failed"
	processTrackingUnavailableMessage  = "process tracking unavailable"

	quickPlanNameConstant = "quick task"
	quickStepTitle        = "instruction"
)

// LoggerProvider supplies the structured logger used during command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the quick command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	CodexRunnerFactory           func(logger *zap.Logger, humanReadable bool) (orchestrator.CodexRunner, error)
}

// Build constructs the quick command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		Example:       commandExampleConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.run,
	}

	command.Flags().Int(timeoutFlagNameConstant, 0, timeoutFlagDescriptionConstant)
	command.Flags().String(contextFlagNameConstant, "", contextFlagDescriptionConstant)
	command.Flags().String(reportDirectoryFlagNameConstant, "", reportDirectoryFlagDescription)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()
	configuration := builder.resolveConfiguration()

	instruction := strings.TrimSpace(strings.Join(arguments, " "))
	if len(instruction) == 0 {
		if helpError := command.Help(); helpError != nil {
			return helpError
		}
		return errors.New(instructionRequiredMessageConstant)
	}

	instructionContext, _, contextError := flagutils.StringFlag(command, contextFlagNameConstant)
	if contextError != nil && !errors.Is(contextError, flagutils.ErrFlagNotDefined) {
		return contextError
	}

	plan := orchestrator.Plan{
		Name:    quickPlanNameConstant,
		Context: strings.TrimSpace(instructionContext),
		Steps: []orchestrator.Step{
			{Title: quickStepTitle, Instruction: instruction, Critical: true},
		},
	}

	executionOptions := orchestrator.ExecutionOptions{
		StepTimeout:     time.Duration(configuration.StepTimeoutSeconds) * time.Second,
		ReportDirectory: configuration.ReportDirectory,
	}

	if executionFlags, executionFlagsAvailable := flagutils.ResolveExecutionFlags(command); executionFlagsAvailable && executionFlags.WorkingDirectorySet {
		executionOptions.WorkingDirectory = executionFlags.WorkingDirectory
	}

	timeoutSeconds, timeoutChanged, timeoutError := flagutils.IntFlag(command, timeoutFlagNameConstant)
	if timeoutError != nil && !errors.Is(timeoutError, flagutils.ErrFlagNotDefined) {
		return timeoutError
	}
	if timeoutChanged && timeoutSeconds > 0 {
		executionOptions.StepTimeout = time.Duration(timeoutSeconds) * time.Second
	}

	reportDirectory, reportChanged, reportError := flagutils.StringFlag(command, reportDirectoryFlagNameConstant)
	if reportError != nil && !errors.Is(reportError, flagutils.ErrFlagNotDefined) {
		return reportError
	}
	if reportChanged && len(strings.TrimSpace(reportDirectory)) > 0 {
		executionOptions.ReportDirectory = strings.TrimSpace(reportDirectory)
	}

	codexRunner, runnerError := builder.resolveCodexRunner(logger, instruction)
	if runnerError != nil {
		return runnerError
	}
	if availabilityError := codexRunner.VerifyAvailable(command.Context()); availabilityError != nil {
		return availabilityError
	}

	reporter := events.NewStructuredReporter(
		utils.NewFlushingWriter(command.OutOrStdout()),
		utils.NewFlushingWriter(command.ErrOrStderr()),
	)

	planExecutor, executorError := orchestrator.NewPlanExecutor(codexRunner, logger, reporter)
	if executorError != nil {
		return executorError
	}

	report := planExecutor.ExecutePlan(command.Context(), plan, executionOptions)

	reportPath, writeError := orchestrator.WriteReport(report, executionOptions.ReportDirectory)
	if writeError != nil {
		return fmt.Errorf(writeReportErrorTemplateConstant, writeError)
	}
	reporter.Report(events.Event{
		Level:    events.EventLevelInfo,
		Code:     events.EventCodeReportWritten,
		PlanName: plan.Name,
		Message:  reportPath,
	})

	if report.FailedSteps > 0 {
		return errors.New(quickStepFailedMessageConstant)
	}
	return nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider != nil {
		if logger := builder.LoggerProvider(); logger != nil {
			return logger
		}
	}
	return zap.NewNop()
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) humanReadableLogging() bool {
	if builder.HumanReadableLoggingProvider == nil {
		return false
	}
	return builder.HumanReadableLoggingProvider()
}

func (builder *CommandBuilder) resolveCodexRunner(logger *zap.Logger, taskDescription string) (orchestrator.CodexRunner, error) {
	if builder.CodexRunnerFactory != nil {
		return builder.CodexRunnerFactory(logger, builder.humanReadableLogging())
	}

	commandRunner := execshell.NewOSCommandRunner()
	if processTracker, trackerError := processes.NewTracker(); trackerError == nil {
		commandRunner = execshell.NewOSCommandRunnerWithObserver(processes.NewExecutionTracker(processTracker, taskDescription, logger))
	} else {
		logger.Warn(processTrackingUnavailableMessage, zap.Error(trackerError))
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, commandRunner, builder.humanReadableLogging())
	if executorError != nil {
		return nil, executorError
	}
	return orchestrator.NewCodexExecutor(shellExecutor)
}
