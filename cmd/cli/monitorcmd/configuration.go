package monitorcmd

import (
	"strings"

	"github.com/tyemirov/codexec/internal/monitor"
)

// CommandConfiguration carries the configurable defaults for the monitor command.
type CommandConfiguration struct {
	Address string `mapstructure:"address"`
}

// DefaultCommandConfiguration returns the built-in monitor command defaults.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{Address: monitor.DefaultAddressConstant}
}

// Sanitize normalizes configuration values and restores defaults for invalid entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Address = strings.TrimSpace(sanitized.Address)
	if len(sanitized.Address) == 0 {
		sanitized.Address = monitor.DefaultAddressConstant
	}
	return sanitized
}
