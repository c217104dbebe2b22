package plancmd

import "strings"

const (
	defaultStepTimeoutSecondsConstant = 300
	defaultStepPauseSecondsConstant   = 2
	defaultReportDirectoryConstant    = "."
)

// CommandConfiguration carries the configurable defaults for the plan command.
type CommandConfiguration struct {
	StepTimeoutSeconds int    `mapstructure:"step_timeout_seconds"`
	StepPauseSeconds   int    `mapstructure:"step_pause_seconds"`
	ReportDirectory    string `mapstructure:"report_directory"`
	MonitorAddress     string `mapstructure:"monitor_address"`
}

// DefaultCommandConfiguration returns the built-in plan command defaults.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		StepTimeoutSeconds: defaultStepTimeoutSecondsConstant,
		StepPauseSeconds:   defaultStepPauseSecondsConstant,
		ReportDirectory:    defaultReportDirectoryConstant,
	}
}

// Sanitize normalizes configuration values and restores defaults for invalid entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	if sanitized.StepTimeoutSeconds <= 0 {
		sanitized.StepTimeoutSeconds = defaultStepTimeoutSecondsConstant
	}
	if sanitized.StepPauseSeconds < 0 {
		sanitized.StepPauseSeconds = defaultStepPauseSecondsConstant
	}
	sanitized.ReportDirectory = strings.TrimSpace(sanitized.ReportDirectory)
	if len(sanitized.ReportDirectory) == 0 {
		sanitized.ReportDirectory = defaultReportDirectoryConstant
	}
	sanitized.MonitorAddress = strings.TrimSpace(sanitized.MonitorAddress)
	return sanitized
}
