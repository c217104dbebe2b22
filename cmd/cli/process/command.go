// Package process assembles the codex process management commands.
package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/codexec/internal/processes"
	"github.com/tyemirov/codexec/internal/utils"
	flagutils "github.com/tyemirov/codexec/internal/utils/flags"
)

const (
	commandUseConstant              = "process"
	commandShortDescriptionConstant = "Inspect and manage running codex processes"
	commandLongDescriptionConstant  = "process lists, terminates, and cleans up codex processes, including stale and runaway ones."

	statusUseConstant              = "status"
	statusShortDescriptionConstant = "Show running and tracked codex processes"

	killUseConstant              = "kill <pid>"
	killShortDescriptionConstant = "Terminate a codex process by pid"

	cleanupUseConstant              = "cleanup"
	cleanupShortDescriptionConstant = "Terminate stale and high-CPU codex processes"

	killAllUseConstant              = "killall"
	killAllShortDescriptionConstant = "Terminate every running codex process"

	forceFlagNameConstant         = "force"
	forceFlagDescriptionConstant  = "Skip graceful termination and kill immediately"
	maxAgeFlagNameConstant        = "max-age-hours"
	maxAgeFlagDescriptionConstant = "Age threshold in hours for stale process cleanup"
	maxCPUFlagNameConstant        = "max-cpu"
	maxCPUFlagDescriptionConstant = "CPU percentage threshold for runaway process cleanup"

	invalidProcessIDTemplateConstant = "invalid process id %q"
	statusEncodeErrorTemplate        = "unable to encode status report: %w"
	killedMessageTemplateConstant    = "process %d terminated\n"
	cleanupMessageTemplateConstant   = "terminated %d stale and %d high-cpu processes\n"
	killAllMessageTemplateConstant   = "terminated %d processes\n"
)

// LoggerProvider supplies the structured logger used during command execution.
type LoggerProvider func() *zap.Logger

// ManagerFactory builds the process manager used by the subcommands.
type ManagerFactory func(logger *zap.Logger) (*processes.Manager, error)

// CommandBuilder assembles the process command tree.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	ManagerFactory        ManagerFactory
}

// Build constructs the process command with its subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	statusCommand := &cobra.Command{
		Use:           statusUseConstant,
		Short:         statusShortDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.runStatus,
	}

	killCommand := &cobra.Command{
		Use:           killUseConstant,
		Short:         killShortDescriptionConstant,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.runKill,
	}
	killCommand.Flags().Bool(forceFlagNameConstant, false, forceFlagDescriptionConstant)

	cleanupCommand := &cobra.Command{
		Use:           cleanupUseConstant,
		Short:         cleanupShortDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.runCleanup,
	}
	cleanupCommand.Flags().Float64(maxAgeFlagNameConstant, 0, maxAgeFlagDescriptionConstant)
	cleanupCommand.Flags().Float64(maxCPUFlagNameConstant, 0, maxCPUFlagDescriptionConstant)

	killAllCommand := &cobra.Command{
		Use:           killAllUseConstant,
		Short:         killAllShortDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.runKillAll,
	}

	command.AddCommand(statusCommand, killCommand, cleanupCommand, killAllCommand)

	return command, nil
}

func (builder *CommandBuilder) runStatus(command *cobra.Command, arguments []string) error {
	manager, managerError := builder.resolveManager()
	if managerError != nil {
		return managerError
	}

	statusReport, statusError := manager.StatusReport(command.Context())
	if statusError != nil {
		return statusError
	}

	encoded, encodeError := json.MarshalIndent(statusReport, "", "  ")
	if encodeError != nil {
		return fmt.Errorf(statusEncodeErrorTemplate, encodeError)
	}

	output := utils.NewFlushingWriter(command.OutOrStdout())
	fmt.Fprintln(output, string(encoded))
	return nil
}

func (builder *CommandBuilder) runKill(command *cobra.Command, arguments []string) error {
	processID, parseError := strconv.ParseInt(strings.TrimSpace(arguments[0]), 10, 32)
	if parseError != nil {
		return fmt.Errorf(invalidProcessIDTemplateConstant, arguments[0])
	}

	forceRequested, _, forceError := flagutils.BoolFlag(command, forceFlagNameConstant)
	if forceError != nil && !errors.Is(forceError, flagutils.ErrFlagNotDefined) {
		return forceError
	}

	manager, managerError := builder.resolveManager()
	if managerError != nil {
		return managerError
	}

	if killError := manager.KillProcess(command.Context(), int32(processID), forceRequested); killError != nil {
		return killError
	}

	output := utils.NewFlushingWriter(command.OutOrStdout())
	fmt.Fprintf(output, killedMessageTemplateConstant, processID)
	return nil
}

func (builder *CommandBuilder) runCleanup(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()

	staleThreshold := time.Duration(configuration.StaleThresholdHours * float64(time.Hour))
	maxAgeHours, maxAgeChanged, maxAgeError := flagutils.Float64Flag(command, maxAgeFlagNameConstant)
	if maxAgeError != nil && !errors.Is(maxAgeError, flagutils.ErrFlagNotDefined) {
		return maxAgeError
	}
	if maxAgeChanged && maxAgeHours > 0 {
		staleThreshold = time.Duration(maxAgeHours * float64(time.Hour))
	}

	cpuThreshold := configuration.CPUThresholdPercent
	maxCPU, maxCPUChanged, maxCPUError := flagutils.Float64Flag(command, maxCPUFlagNameConstant)
	if maxCPUError != nil && !errors.Is(maxCPUError, flagutils.ErrFlagNotDefined) {
		return maxCPUError
	}
	if maxCPUChanged && maxCPU > 0 {
		cpuThreshold = maxCPU
	}

	manager, managerError := builder.resolveManager()
	if managerError != nil {
		return managerError
	}

	staleCount, staleError := manager.CleanupStale(command.Context(), staleThreshold)
	if staleError != nil {
		return staleError
	}

	highCPUCount, highCPUError := manager.CleanupHighCPU(command.Context(), cpuThreshold)
	if highCPUError != nil {
		return highCPUError
	}

	output := utils.NewFlushingWriter(command.OutOrStdout())
	fmt.Fprintf(output, cleanupMessageTemplateConstant, staleCount, highCPUCount)
	return nil
}

func (builder *CommandBuilder) runKillAll(command *cobra.Command, arguments []string) error {
	manager, managerError := builder.resolveManager()
	if managerError != nil {
		return managerError
	}

	killedCount, killError := manager.KillAll(command.Context())
	if killError != nil {
		return killError
	}

	output := utils.NewFlushingWriter(command.OutOrStdout())
	fmt.Fprintf(output, killAllMessageTemplateConstant, killedCount)
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

func (builder *CommandBuilder) resolveManager() (*processes.Manager, error) {
	logger := builder.resolveLogger()
	if builder.ManagerFactory != nil {
		return builder.ManagerFactory(logger)
	}

	tracker, trackerError := processes.NewTracker()
	if trackerError != nil {
		return nil, trackerError
	}
	return processes.NewManager(processes.NewInventory(), tracker, logger), nil
}
