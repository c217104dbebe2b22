package session

import "strings"

const defaultMessageLimitConstant = 50

// CommandConfiguration carries the configurable defaults for session inspection.
type CommandConfiguration struct {
	SessionDirectory string `mapstructure:"session_directory"`
	MessageLimit     int    `mapstructure:"message_limit"`
}

// DefaultCommandConfiguration returns the built-in session command defaults.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{MessageLimit: defaultMessageLimitConstant}
}

// Sanitize normalizes configuration values and restores defaults for invalid entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.SessionDirectory = strings.TrimSpace(sanitized.SessionDirectory)
	if sanitized.MessageLimit <= 0 {
		sanitized.MessageLimit = defaultMessageLimitConstant
	}
	return sanitized
}
