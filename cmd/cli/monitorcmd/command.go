// Package monitorcmd assembles the standalone monitor dashboard command.
package monitorcmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/codexec/internal/monitor"
	flagutils "github.com/tyemirov/codexec/internal/utils/flags"
)

const (
	commandUseConstant              = "monitor"
	commandShortDescriptionConstant = "Serve the execution dashboard without running a plan"
	commandLongDescriptionConstant  = "monitor serves the live execution dashboard over HTTP; it stays empty until a plan run publishes events to it."

	addressFlagNameConstant        = "address"
	addressFlagDescriptionConstant = "Listen address for the dashboard"
)

// LoggerProvider supplies the structured logger used during command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the monitor command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the monitor command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.run,
	}

	command.Flags().String(addressFlagNameConstant, "", addressFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()
	configuration := builder.resolveConfiguration()

	listenAddress := configuration.Address
	addressValue, addressChanged, addressError := flagutils.StringFlag(command, addressFlagNameConstant)
	if addressError != nil && !errors.Is(addressError, flagutils.ErrFlagNotDefined) {
		return addressError
	}
	if addressChanged && len(strings.TrimSpace(addressValue)) > 0 {
		listenAddress = strings.TrimSpace(addressValue)
	}
	if len(listenAddress) == 0 {
		listenAddress = monitor.DefaultAddressConstant
	}

	monitorServer, serverError := monitor.NewServer(monitor.NewHub(), logger, listenAddress)
	if serverError != nil {
		return serverError
	}

	return monitorServer.Run(command.Context())
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
