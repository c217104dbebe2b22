package flags_test

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/tyemirov/codexec/internal/utils"
	flagutils "github.com/tyemirov/codexec/internal/utils/flags"
)

func buildCommandHierarchy(testInstance *testing.T) (*cobra.Command, *cobra.Command) {
	testInstance.Helper()

	rootCommand := &cobra.Command{Use: "root"}
	rootCommand.PersistentFlags().String("log-level", "", "Log level")

	childCommand := &cobra.Command{Use: "child", RunE: func(*cobra.Command, []string) error { return nil }}
	childCommand.Flags().Bool("monitor", false, "Enable monitor")
	childCommand.Flags().Int("timeout", 0, "Step timeout")
	childCommand.Flags().Float64("max-cpu", 0, "CPU threshold")
	rootCommand.AddCommand(childCommand)

	return rootCommand, childCommand
}

func TestBoolFlag(testInstance *testing.T) {
	_, childCommand := buildCommandHierarchy(testInstance)

	value, changed, flagError := flagutils.BoolFlag(childCommand, "monitor")
	require.NoError(testInstance, flagError)
	require.False(testInstance, value)
	require.False(testInstance, changed)

	require.NoError(testInstance, childCommand.Flags().Set("monitor", "true"))
	value, changed, flagError = flagutils.BoolFlag(childCommand, "monitor")
	require.NoError(testInstance, flagError)
	require.True(testInstance, value)
	require.True(testInstance, changed)
}

func TestIntAndFloatFlags(testInstance *testing.T) {
	_, childCommand := buildCommandHierarchy(testInstance)

	require.NoError(testInstance, childCommand.Flags().Set("timeout", "120"))
	intValue, intChanged, intError := flagutils.IntFlag(childCommand, "timeout")
	require.NoError(testInstance, intError)
	require.Equal(testInstance, 120, intValue)
	require.True(testInstance, intChanged)

	require.NoError(testInstance, childCommand.Flags().Set("max-cpu", "75.5"))
	floatValue, floatChanged, floatError := flagutils.Float64Flag(childCommand, "max-cpu")
	require.NoError(testInstance, floatError)
	require.InDelta(testInstance, 75.5, floatValue, 0.001)
	require.True(testInstance, floatChanged)
}

func TestStringFlagResolvesThroughRootPersistentFlags(testInstance *testing.T) {
	rootCommand, childCommand := buildCommandHierarchy(testInstance)

	require.NoError(testInstance, rootCommand.PersistentFlags().Set("log-level", "debug"))
	value, changed, flagError := flagutils.StringFlag(childCommand, "log-level")
	require.NoError(testInstance, flagError)
	require.Equal(testInstance, "debug", value)
	require.True(testInstance, changed)
}

func TestUndefinedFlag(testInstance *testing.T) {
	_, childCommand := buildCommandHierarchy(testInstance)

	_, _, flagError := flagutils.BoolFlag(childCommand, "nonexistent")
	require.ErrorIs(testInstance, flagError, flagutils.ErrFlagNotDefined)

	_, _, nilCommandError := flagutils.StringFlag(nil, "anything")
	require.ErrorIs(testInstance, nilCommandError, flagutils.ErrFlagNotDefined)
}

func TestBindWorkingDirectoryFlag(testInstance *testing.T) {
	testInstance.Run("disabled_definition_skips_binding", func(testInstance *testing.T) {
		command := &cobra.Command{Use: "root"}
		flagutils.BindWorkingDirectoryFlag(command, "", flagutils.WorkingDirectoryFlagDefinition{})
		require.Nil(testInstance, command.PersistentFlags().Lookup(flagutils.WorkingDirectoryFlagName))
	})

	testInstance.Run("binds_with_defaults", func(testInstance *testing.T) {
		command := &cobra.Command{Use: "root"}
		flagutils.BindWorkingDirectoryFlag(command, "/tmp/project", flagutils.WorkingDirectoryFlagDefinition{
			Shorthand: flagutils.WorkingDirectoryFlagShorthand,
			Enabled:   true,
		})

		boundFlag := command.PersistentFlags().Lookup(flagutils.WorkingDirectoryFlagName)
		require.NotNil(testInstance, boundFlag)
		require.Equal(testInstance, "/tmp/project", boundFlag.DefValue)
		require.Equal(testInstance, flagutils.WorkingDirectoryFlagShorthand, boundFlag.Shorthand)
	})
}

func TestCollectExecutionFlags(testInstance *testing.T) {
	command := &cobra.Command{Use: "root"}
	flagutils.BindWorkingDirectoryFlag(command, "", flagutils.WorkingDirectoryFlagDefinition{Enabled: true})
	require.NoError(testInstance, command.PersistentFlags().Set(flagutils.WorkingDirectoryFlagName, "  /tmp/project  "))

	executionFlags := flagutils.CollectExecutionFlags(command)
	require.Equal(testInstance, "/tmp/project", executionFlags.WorkingDirectory)
	require.True(testInstance, executionFlags.WorkingDirectorySet)
}

func TestResolveExecutionFlagsPrefersContext(testInstance *testing.T) {
	command := &cobra.Command{Use: "root"}
	contextAccessor := utils.NewCommandContextAccessor()
	command.SetContext(contextAccessor.WithExecutionFlags(nil, utils.ExecutionFlags{
		WorkingDirectory:    "/srv/from-context",
		WorkingDirectorySet: true,
	}))

	executionFlags, overridesProvided := flagutils.ResolveExecutionFlags(command)
	require.True(testInstance, overridesProvided)
	require.Equal(testInstance, "/srv/from-context", executionFlags.WorkingDirectory)
}
