// Package plancmd assembles the plan execution command.
package plancmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/codexec/internal/events"
	"github.com/tyemirov/codexec/internal/execshell"
	"github.com/tyemirov/codexec/internal/monitor"
	"github.com/tyemirov/codexec/internal/orchestrator"
	"github.com/tyemirov/codexec/internal/processes"
	"github.com/tyemirov/codexec/internal/sessions"
	"github.com/tyemirov/codexec/internal/templates"
	"github.com/tyemirov/codexec/internal/utils"
	flagutils "github.com/tyemirov/codexec/internal/utils/flags"
)

const (
	commandUseConstant              = "plan <file|template>"
	commandShortDescriptionConstant = "Execute a multi-step plan through the Codex CLI"
	commandLongDescriptionConstant  = "plan runs the steps of a YAML plan file or embedded template strictly in sequence, delegating every instruction to the Codex CLI and writing a JSON execution report."
	commandExampleConstant          = "codexec plan ./plan.yaml\n  codexec plan create-project --dir ~/work/service"

	listTemplatesFlagNameConstant        = "list-templates"
	listTemplatesFlagDescriptionConstant = "List embedded plan templates and exit"
	timeoutFlagNameConstant              = "timeout"
	timeoutFlagDescriptionConstant       = "Per-step timeout in seconds"
	pauseFlagNameConstant                = "pause"
	pauseFlagDescriptionConstant         = "Pause between steps in seconds"
	reportDirectoryFlagNameConstant      = "report-dir"
	reportDirectoryFlagDescription       = "Directory for the JSON execution report"
	monitorFlagNameConstant              = "monitor"
	monitorFlagDescriptionConstant       = "Serve a live execution dashboard while the plan runs"
	monitorAddressFlagNameConstant       = "monitor-address"
	monitorAddressFlagDescription        = "Listen address for the live dashboard"

	planPathRequiredMessageConstant     = "plan file path or template name required; see --list-templates for embedded plans"
	loadPlanErrorTemplateConstant       = "unable to load plan: %w"
	loadTemplateErrorTemplateConstant   = "unable to load embedded template %q: %w"
	writeReportErrorTemplateConstant    = "unable to write execution report: %w"
	planHaltedMessageConstant           = "plan halted: critical step failed"
	planFailuresMessageTemplateConstant = "plan completed with %d failed steps"

	templateListHeaderConstant = "Embedded templates:"
	templateListEntryTemplate  = "  - %s\n"

	monitorStartFailedMessageConstant = "monitor server failed to start"
	processTrackingUnavailableMessage = "process tracking unavailable"
	checkpointSaveFailedMessage       = "checkpoint not saved"
	checkpointSavedMessageConstant    = "checkpoint saved"
	checkpointFileFieldConstant       = "checkpoint_file"
	reportFileFieldConstant           = "report_file"
	reportWrittenMessageConstant      = "execution report written"
)

// LoggerProvider supplies the structured logger used during command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the plan command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	CodexRunnerFactory           func(logger *zap.Logger, humanReadable bool) (orchestrator.CodexRunner, error)
}

// Build constructs the plan command.
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

	command.Flags().Bool(listTemplatesFlagNameConstant, false, listTemplatesFlagDescriptionConstant)
	command.Flags().Int(timeoutFlagNameConstant, 0, timeoutFlagDescriptionConstant)
	command.Flags().Int(pauseFlagNameConstant, -1, pauseFlagDescriptionConstant)
	command.Flags().String(reportDirectoryFlagNameConstant, "", reportDirectoryFlagDescription)
	command.Flags().Bool(monitorFlagNameConstant, false, monitorFlagDescriptionConstant)
	command.Flags().String(monitorAddressFlagNameConstant, "", monitorAddressFlagDescription)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()
	configuration := builder.resolveConfiguration()

	listTemplates, _, listFlagError := flagutils.BoolFlag(command, listTemplatesFlagNameConstant)
	if listFlagError != nil && !errors.Is(listFlagError, flagutils.ErrFlagNotDefined) {
		return listFlagError
	}
	if listTemplates {
		printTemplateList(command)
		return nil
	}

	if len(arguments) == 0 {
		if helpError := command.Help(); helpError != nil {
			return helpError
		}
		return errors.New(planPathRequiredMessageConstant)
	}

	planReference := strings.TrimSpace(arguments[0])
	plan, planError := resolvePlan(planReference)
	if planError != nil {
		return planError
	}

	executionOptions, optionsError := builder.resolveExecutionOptions(command, configuration)
	if optionsError != nil {
		return optionsError
	}

	codexRunner, runnerError := builder.resolveCodexRunner(logger, plan.Name)
	if runnerError != nil {
		return runnerError
	}
	if availabilityError := codexRunner.VerifyAvailable(command.Context()); availabilityError != nil {
		return availabilityError
	}

	reporterOptions := []events.ReporterOption{events.WithPlanHeaders(true)}

	monitorEnabled, _, monitorFlagError := flagutils.BoolFlag(command, monitorFlagNameConstant)
	if monitorFlagError != nil && !errors.Is(monitorFlagError, flagutils.ErrFlagNotDefined) {
		return monitorFlagError
	}
	if monitorEnabled {
		monitorAddress := resolveMonitorAddress(command, configuration)
		executionHub := monitor.NewHub()
		reporterOptions = append(reporterOptions, events.WithSubscriber(executionHub))
		monitorServer, serverError := monitor.NewServer(executionHub, logger, monitorAddress)
		if serverError != nil {
			return serverError
		}
		go func() {
			if runError := monitorServer.Run(command.Context()); runError != nil {
				logger.Warn(monitorStartFailedMessageConstant, zap.Error(runError))
			}
		}()
	}

	reporter := events.NewStructuredReporter(
		utils.NewFlushingWriter(command.OutOrStdout()),
		utils.NewFlushingWriter(command.ErrOrStderr()),
		reporterOptions...,
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
	logger.Info(reportWrittenMessageConstant, zap.String(reportFileFieldConstant, reportPath))
	reporter.Report(events.Event{
		Level:    events.EventLevelInfo,
		Code:     events.EventCodeReportWritten,
		PlanName: plan.Name,
		Message:  reportPath,
	})

	saveCheckpoint(logger, plan, report, executionOptions.WorkingDirectory)

	reporter.PrintSummary()

	return reportOutcomeError(report)
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

func (builder *CommandBuilder) resolveExecutionOptions(command *cobra.Command, configuration CommandConfiguration) (orchestrator.ExecutionOptions, error) {
	executionOptions := orchestrator.ExecutionOptions{
		StepTimeout:     time.Duration(configuration.StepTimeoutSeconds) * time.Second,
		StepPause:       time.Duration(configuration.StepPauseSeconds) * time.Second,
		ReportDirectory: configuration.ReportDirectory,
	}

	if executionFlags, executionFlagsAvailable := flagutils.ResolveExecutionFlags(command); executionFlagsAvailable && executionFlags.WorkingDirectorySet {
		executionOptions.WorkingDirectory = executionFlags.WorkingDirectory
	}

	timeoutSeconds, timeoutChanged, timeoutError := flagutils.IntFlag(command, timeoutFlagNameConstant)
	if timeoutError != nil && !errors.Is(timeoutError, flagutils.ErrFlagNotDefined) {
		return orchestrator.ExecutionOptions{}, timeoutError
	}
	if timeoutChanged && timeoutSeconds > 0 {
		executionOptions.StepTimeout = time.Duration(timeoutSeconds) * time.Second
	}

	pauseSeconds, pauseChanged, pauseError := flagutils.IntFlag(command, pauseFlagNameConstant)
	if pauseError != nil && !errors.Is(pauseError, flagutils.ErrFlagNotDefined) {
		return orchestrator.ExecutionOptions{}, pauseError
	}
	if pauseChanged && pauseSeconds >= 0 {
		executionOptions.StepPause = time.Duration(pauseSeconds) * time.Second
	}

	reportDirectory, reportChanged, reportError := flagutils.StringFlag(command, reportDirectoryFlagNameConstant)
	if reportError != nil && !errors.Is(reportError, flagutils.ErrFlagNotDefined) {
		return orchestrator.ExecutionOptions{}, reportError
	}
	if reportChanged && len(strings.TrimSpace(reportDirectory)) > 0 {
		executionOptions.ReportDirectory = strings.TrimSpace(reportDirectory)
	}

	return executionOptions, nil
}

func resolvePlan(planReference string) (orchestrator.Plan, error) {
	if templates.IsTemplate(planReference) {
		templatePlan, templateError := templates.LoadTemplate(planReference)
		if templateError != nil {
			return orchestrator.Plan{}, fmt.Errorf(loadTemplateErrorTemplateConstant, planReference, templateError)
		}
		return templatePlan, nil
	}

	loadedPlan, loadError := orchestrator.LoadPlan(planReference)
	if loadError != nil {
		return orchestrator.Plan{}, fmt.Errorf(loadPlanErrorTemplateConstant, loadError)
	}
	return loadedPlan, nil
}

func resolveMonitorAddress(command *cobra.Command, configuration CommandConfiguration) string {
	addressValue, addressChanged, addressError := flagutils.StringFlag(command, monitorAddressFlagNameConstant)
	if addressError == nil && addressChanged && len(strings.TrimSpace(addressValue)) > 0 {
		return strings.TrimSpace(addressValue)
	}
	if len(configuration.MonitorAddress) > 0 {
		return configuration.MonitorAddress
	}
	return monitor.DefaultAddressConstant
}

func printTemplateList(command *cobra.Command) {
	output := utils.NewFlushingWriter(command.OutOrStdout())
	fmt.Fprintln(output, templateListHeaderConstant)
	for _, templateName := range templates.TemplateNames() {
		fmt.Fprintf(output, templateListEntryTemplate, templateName)
	}
}

func saveCheckpoint(logger *zap.Logger, plan orchestrator.Plan, report orchestrator.Report, workingDirectory string) {
	checkpointStore, storeError := sessions.NewCheckpointStore()
	if storeError != nil {
		logger.Warn(checkpointSaveFailedMessage, zap.Error(storeError))
		return
	}

	checkpoint := sessions.Checkpoint{
		Timestamp:        time.Now(),
		WorkingDirectory: workingDirectory,
		Task:             plan.Name,
		Plan:             plan,
		Results:          report.Steps,
	}
	if discovery, discoveryError := sessions.NewDiscovery(); discoveryError == nil {
		if sessionPath, sessionError := discovery.LatestSession(workingDirectory); sessionError == nil {
			checkpoint.SessionFile = sessionPath
		}
	}

	checkpointPath, saveError := checkpointStore.Save(checkpoint)
	if saveError != nil {
		logger.Warn(checkpointSaveFailedMessage, zap.Error(saveError))
		return
	}
	logger.Debug(checkpointSavedMessageConstant, zap.String(checkpointFileFieldConstant, checkpointPath))
}

func reportOutcomeError(report orchestrator.Report) error {
	if report.Halted {
		return errors.New(planHaltedMessageConstant)
	}
	if report.FailedSteps > 0 {
		return fmt.Errorf(planFailuresMessageTemplateConstant, report.FailedSteps)
	}
	return nil
}
