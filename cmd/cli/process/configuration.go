package process

const (
	defaultStaleThresholdHoursConstant = 24.0
	defaultCPUThresholdPercentConstant = 90.0
)

// CommandConfiguration carries the configurable defaults for process cleanup.
type CommandConfiguration struct {
	StaleThresholdHours float64 `mapstructure:"stale_threshold_hours"`
	CPUThresholdPercent float64 `mapstructure:"cpu_threshold_percent"`
}

// DefaultCommandConfiguration returns the built-in process command defaults.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		StaleThresholdHours: defaultStaleThresholdHoursConstant,
		CPUThresholdPercent: defaultCPUThresholdPercentConstant,
	}
}

// Sanitize normalizes configuration values and restores defaults for invalid entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	if sanitized.StaleThresholdHours <= 0 {
		sanitized.StaleThresholdHours = defaultStaleThresholdHoursConstant
	}
	if sanitized.CPUThresholdPercent <= 0 {
		sanitized.CPUThresholdPercent = defaultCPUThresholdPercentConstant
	}
	return sanitized
}
