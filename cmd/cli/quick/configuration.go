package quick

import "strings"

const (
	defaultStepTimeoutSecondsConstant = 300
	defaultReportDirectoryConstant    = "."
)

// CommandConfiguration carries the configurable defaults for the quick command.
type CommandConfiguration struct {
	StepTimeoutSeconds int    `mapstructure:"step_timeout_seconds"`
	ReportDirectory    string `mapstructure:"report_directory"`
}

// DefaultCommandConfiguration returns the built-in quick command defaults.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		StepTimeoutSeconds: defaultStepTimeoutSecondsConstant,
		ReportDirectory:    defaultReportDirectoryConstant,
	}
}

// Sanitize normalizes configuration values and restores defaults for invalid entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	if sanitized.StepTimeoutSeconds <= 0 {
		sanitized.StepTimeoutSeconds = defaultStepTimeoutSecondsConstant
	}
	sanitized.ReportDirectory = strings.TrimSpace(sanitized.ReportDirectory)
	if len(sanitized.ReportDirectory) == 0 {
		sanitized.ReportDirectory = defaultReportDirectoryConstant
	}
	return sanitized
}
