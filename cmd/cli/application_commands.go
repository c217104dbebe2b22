package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/codexec/cmd/cli/monitorcmd"
	"github.com/tyemirov/codexec/cmd/cli/plancmd"
	processcmd "github.com/tyemirov/codexec/cmd/cli/process"
	quickcmd "github.com/tyemirov/codexec/cmd/cli/quick"
	sessioncmd "github.com/tyemirov/codexec/cmd/cli/session"
)

const (
	missingOperationConfigurationMessageConstant = "operation configuration not applied"
	operationNameLogFieldConstant                = "operation"
)

func (application *Application) registerCommands(cobraCommand *cobra.Command) {
	planBuilder := plancmd.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider:        application.planCommandConfiguration,
	}
	if planCommand, planBuildError := planBuilder.Build(); planBuildError == nil {
		cobraCommand.AddCommand(planCommand)
	}

	quickBuilder := quickcmd.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider:        application.quickCommandConfiguration,
	}
	if quickCommand, quickBuildError := quickBuilder.Build(); quickBuildError == nil {
		cobraCommand.AddCommand(quickCommand)
	}

	processBuilder := processcmd.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: application.processCommandConfiguration,
	}
	if processCommand, processBuildError := processBuilder.Build(); processBuildError == nil {
		cobraCommand.AddCommand(processCommand)
	}

	sessionBuilder := sessioncmd.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: application.sessionCommandConfiguration,
	}
	if sessionCommand, sessionBuildError := sessionBuilder.Build(); sessionBuildError == nil {
		cobraCommand.AddCommand(sessionCommand)
	}

	monitorBuilder := monitorcmd.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: application.monitorCommandConfiguration,
	}
	if monitorCommand, monitorBuildError := monitorBuilder.Build(); monitorBuildError == nil {
		cobraCommand.AddCommand(monitorCommand)
	}
}

func (application *Application) planCommandConfiguration() plancmd.CommandConfiguration {
	configuration := plancmd.DefaultCommandConfiguration()
	application.decodeOperationConfiguration(planOperationNameConstant, &configuration)
	return configuration.Sanitize()
}

func (application *Application) quickCommandConfiguration() quickcmd.CommandConfiguration {
	configuration := quickcmd.DefaultCommandConfiguration()
	application.decodeOperationConfiguration(quickOperationNameConstant, &configuration)
	return configuration.Sanitize()
}

func (application *Application) processCommandConfiguration() processcmd.CommandConfiguration {
	configuration := processcmd.DefaultCommandConfiguration()
	application.decodeOperationConfiguration(processOperationNameConstant, &configuration)
	return configuration.Sanitize()
}

func (application *Application) sessionCommandConfiguration() sessioncmd.CommandConfiguration {
	configuration := sessioncmd.DefaultCommandConfiguration()
	application.decodeOperationConfiguration(sessionOperationNameConstant, &configuration)
	return configuration.Sanitize()
}

func (application *Application) monitorCommandConfiguration() monitorcmd.CommandConfiguration {
	configuration := monitorcmd.DefaultCommandConfiguration()
	application.decodeOperationConfiguration(monitorOperationNameConstant, &configuration)
	return configuration.Sanitize()
}
