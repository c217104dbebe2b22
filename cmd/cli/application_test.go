package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/codexec/cmd/cli"
)

const (
	testConfigurationSearchPathEnvironmentNameConstant = "CODEXEC_CONFIG_SEARCH_PATH"
	testConfigurationFileNameConstant                  = "config.yaml"

	testConfigurationContentConstant = `common:
  log_level: error
  log_format: structured
operations:
  - operation: plan
    with:
      step_timeout_seconds: 120
`

	testDuplicateConfigurationContentConstant = `common:
  log_level: error
  log_format: structured
operations:
  - operation: plan
    with:
      step_timeout_seconds: 120
  - operation: plan
    with:
      step_timeout_seconds: 240
`
)

func writeConfigurationFile(testInstance *testing.T, directoryPath string, content string) string {
	testInstance.Helper()
	configurationPath := filepath.Join(directoryPath, testConfigurationFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(content), 0o600))
	return configurationPath
}

func TestApplicationDiscoversConfigurationFromSearchPath(testInstance *testing.T) {
	configurationDirectory := testInstance.TempDir()
	configurationPath := writeConfigurationFile(testInstance, configurationDirectory, testConfigurationContentConstant)
	testInstance.Setenv(testConfigurationSearchPathEnvironmentNameConstant, configurationDirectory)

	application := cli.NewApplication()
	require.NoError(testInstance, application.InitializeForCommand("plan"))
	require.Equal(testInstance, configurationPath, application.ConfigFileUsed())
}

func TestApplicationFallsBackToEmbeddedDefaults(testInstance *testing.T) {
	testInstance.Setenv(testConfigurationSearchPathEnvironmentNameConstant, testInstance.TempDir())

	application := cli.NewApplication()
	require.NoError(testInstance, application.InitializeForCommand("plan"))
	require.Empty(testInstance, application.ConfigFileUsed())
}

func TestApplicationRejectsDuplicateOperationConfigurations(testInstance *testing.T) {
	configurationDirectory := testInstance.TempDir()
	writeConfigurationFile(testInstance, configurationDirectory, testDuplicateConfigurationContentConstant)
	testInstance.Setenv(testConfigurationSearchPathEnvironmentNameConstant, configurationDirectory)

	application := cli.NewApplication()
	initializationError := application.InitializeForCommand("plan")

	var duplicate cli.DuplicateOperationConfigurationError
	require.ErrorAs(testInstance, initializationError, &duplicate)
	require.Equal(testInstance, "plan", duplicate.OperationName)
}
