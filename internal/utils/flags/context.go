// Package flags provides helpers for binding standardized execution flags to Cobra commands.
package flags

import "github.com/spf13/cobra"

const (
	// WorkingDirectoryFlagName exposes the shared working directory flag name.
	WorkingDirectoryFlagName = "dir"
	// WorkingDirectoryFlagShorthand provides the shorthand for the working directory flag.
	WorkingDirectoryFlagShorthand = "C"
	// WorkingDirectoryFlagUsage describes the shared working directory flag purpose.
	WorkingDirectoryFlagUsage = "Working directory for delegated commands"
)

// WorkingDirectoryFlagDefinition captures configuration for the working directory flag.
type WorkingDirectoryFlagDefinition struct {
	Name      string
	Shorthand string
	Usage     string
	Enabled   bool
}

// BindWorkingDirectoryFlag attaches the shared working directory flag to the provided command.
func BindWorkingDirectoryFlag(command *cobra.Command, defaultValue string, definition WorkingDirectoryFlagDefinition) {
	if command == nil {
		return
	}
	if !definition.Enabled {
		return
	}

	flagName := definition.Name
	if len(flagName) == 0 {
		flagName = WorkingDirectoryFlagName
	}
	flagUsage := definition.Usage
	if len(flagUsage) == 0 {
		flagUsage = WorkingDirectoryFlagUsage
	}

	persistentSet := command.PersistentFlags()
	if persistentSet.Lookup(flagName) == nil {
		persistentSet.StringP(flagName, definition.Shorthand, defaultValue, flagUsage)
	}

	if command.Flags().Lookup(flagName) == nil {
		if directoryFlag := persistentSet.Lookup(flagName); directoryFlag != nil {
			command.Flags().AddFlag(directoryFlag)
		}
	}
}
