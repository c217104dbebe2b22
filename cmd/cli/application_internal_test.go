package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewOperationConfigurationsRejectsDuplicates(t *testing.T) {
	_, buildError := newOperationConfigurations([]ApplicationOperationConfiguration{
		{Operation: "plan", Options: map[string]any{"step_timeout_seconds": 120}},
		{Operation: "  Plan  ", Options: map[string]any{"step_timeout_seconds": 240}},
	})

	var duplicate DuplicateOperationConfigurationError
	require.ErrorAs(t, buildError, &duplicate)
	require.Equal(t, "plan", duplicate.OperationName)
}

func TestNewOperationConfigurationsSkipsBlankOperationNames(t *testing.T) {
	operations, buildError := newOperationConfigurations([]ApplicationOperationConfiguration{
		{Operation: "   ", Options: map[string]any{"ignored": true}},
		{Operation: "quick", Options: map[string]any{"step_timeout_seconds": 90}},
	})
	require.NoError(t, buildError)

	_, missingError := operations.Lookup("   ")
	var missing MissingOperationConfigurationError
	require.ErrorAs(t, missingError, &missing)

	quickOptions, lookupError := operations.Lookup("QUICK")
	require.NoError(t, lookupError)
	require.Equal(t, 90, quickOptions["step_timeout_seconds"])
}

func TestOperationConfigurationsLookupReturnsCopy(t *testing.T) {
	operations, buildError := newOperationConfigurations([]ApplicationOperationConfiguration{
		{Operation: "plan", Options: map[string]any{"report_directory": "."}},
	})
	require.NoError(t, buildError)

	firstLookup, firstError := operations.Lookup("plan")
	require.NoError(t, firstError)
	firstLookup["report_directory"] = "/tmp/mutated"

	secondLookup, secondError := operations.Lookup("plan")
	require.NoError(t, secondError)
	require.Equal(t, ".", secondLookup["report_directory"])
}

func TestOperationConfigurationsMergeDefaultsDoesNotOverride(t *testing.T) {
	operations, buildError := newOperationConfigurations([]ApplicationOperationConfiguration{
		{Operation: "plan", Options: map[string]any{"step_timeout_seconds": 600}},
	})
	require.NoError(t, buildError)

	defaults, defaultsError := newOperationConfigurations([]ApplicationOperationConfiguration{
		{Operation: "plan", Options: map[string]any{"step_timeout_seconds": 300}},
		{Operation: "monitor", Options: map[string]any{"address": ":5555"}},
	})
	require.NoError(t, defaultsError)

	merged := operations.MergeDefaults(defaults)

	planOptions, planError := merged.Lookup("plan")
	require.NoError(t, planError)
	require.Equal(t, 600, planOptions["step_timeout_seconds"])

	monitorOptions, monitorError := merged.Lookup("monitor")
	require.NoError(t, monitorError)
	require.Equal(t, ":5555", monitorOptions["address"])
}

func TestOperationConfigurationsDecodeWeaklyTypedInput(t *testing.T) {
	operations, buildError := newOperationConfigurations([]ApplicationOperationConfiguration{
		{Operation: "plan", Options: map[string]any{"step_timeout_seconds": "450", "report_directory": "/tmp/reports"}},
	})
	require.NoError(t, buildError)

	type decodedConfiguration struct {
		StepTimeoutSeconds int    `mapstructure:"step_timeout_seconds"`
		ReportDirectory    string `mapstructure:"report_directory"`
	}

	var decoded decodedConfiguration
	require.NoError(t, operations.decode("plan", &decoded))
	require.Equal(t, 450, decoded.StepTimeoutSeconds)
	require.Equal(t, "/tmp/reports", decoded.ReportDirectory)
}

func TestLoadEmbeddedOperationConfigurations(t *testing.T) {
	embeddedConfigurations := loadEmbeddedOperationConfigurations()

	for _, operationName := range []string{planOperationNameConstant, quickOperationNameConstant, processOperationNameConstant, sessionOperationNameConstant, monitorOperationNameConstant} {
		_, lookupError := embeddedConfigurations.Lookup(operationName)
		require.NoError(t, lookupError, operationName)
	}

	planOptions, planError := embeddedConfigurations.Lookup(planOperationNameConstant)
	require.NoError(t, planError)
	require.EqualValues(t, 300, planOptions["step_timeout_seconds"])
}

func TestNormalizeInitializationScopeArguments(t *testing.T) {
	testCases := []struct {
		name              string
		arguments         []string
		expectedArguments []string
	}{
		{
			name:              "no_arguments",
			arguments:         nil,
			expectedArguments: nil,
		},
		{
			name:              "bare_init_at_end",
			arguments:         []string{"--init"},
			expectedArguments: []string{"--init=local"},
		},
		{
			name:              "bare_init_before_flag",
			arguments:         []string{"--init", "--force"},
			expectedArguments: []string{"--init=local", "--force"},
		},
		{
			name:              "init_with_scope_argument",
			arguments:         []string{"--init", "user"},
			expectedArguments: []string{"--init", "user"},
		},
		{
			name:              "init_with_empty_assignment",
			arguments:         []string{"--init="},
			expectedArguments: []string{"--init=local"},
		},
		{
			name:              "init_with_explicit_assignment",
			arguments:         []string{"--init=user"},
			expectedArguments: []string{"--init=user"},
		},
		{
			name:              "unrelated_arguments_untouched",
			arguments:         []string{"plan", "tasks.yaml", "--timeout", "90"},
			expectedArguments: []string{"plan", "tasks.yaml", "--timeout", "90"},
		},
	}

	for testIndex := range testCases {
		testCase := testCases[testIndex]
		t.Run(testCase.name, func(t *testing.T) {
			normalized := normalizeInitializationScopeArguments(testCase.arguments)
			require.Equal(t, testCase.expectedArguments, normalized)
		})
	}
}

func TestResolveConfigurationSearchPathsHonorsOverride(t *testing.T) {
	firstDirectory := t.TempDir()
	secondDirectory := t.TempDir()
	t.Setenv(configurationSearchPathEnvironmentVariableConstant, strings.Join([]string{firstDirectory, "  ", secondDirectory}, string(os.PathListSeparator)))

	application := &Application{}
	searchPaths := application.resolveConfigurationSearchPaths()
	require.Equal(t, []string{firstDirectory, secondDirectory}, searchPaths)
}

func TestResolveConfigurationSearchPathsDefaults(t *testing.T) {
	homeDirectory := t.TempDir()
	t.Setenv(configurationSearchPathEnvironmentVariableConstant, "")
	t.Setenv("HOME", homeDirectory)
	t.Setenv(xdgConfigHomeEnvironmentVariableConstant, "")

	application := &Application{}
	searchPaths := application.resolveConfigurationSearchPaths()
	require.NotEmpty(t, searchPaths)
	require.Equal(t, defaultConfigurationSearchPathConstant, searchPaths[0])
	require.Contains(t, searchPaths, filepath.Join(homeDirectory, userConfigurationDirectoryNameConstant))
}

func TestResolveConfigurationInitializationPlan(t *testing.T) {
	homeDirectory := t.TempDir()
	t.Setenv("HOME", homeDirectory)

	application := &Application{}

	userPlan, userPlanError := application.resolveConfigurationInitializationPlan(configurationInitializationScopeUserConstant)
	require.NoError(t, userPlanError)
	require.Equal(t, filepath.Join(homeDirectory, userConfigurationDirectoryNameConstant), userPlan.DirectoryPath)
	require.Equal(t, filepath.Join(homeDirectory, userConfigurationDirectoryNameConstant, configurationFileNameConstant), userPlan.FilePath)

	_, unsupportedError := application.resolveConfigurationInitializationPlan("global")
	require.EqualError(t, unsupportedError, `unsupported --init scope "global" (expected local or user)`)
}

func TestWriteConfigurationFile(t *testing.T) {
	configurationDirectory := filepath.Join(t.TempDir(), "nested")
	initializationPlan := configurationInitializationPlan{
		DirectoryPath: configurationDirectory,
		FilePath:      filepath.Join(configurationDirectory, configurationFileNameConstant),
	}

	application := &Application{}
	require.NoError(t, application.writeConfigurationFile(initializationPlan, []byte("common:\n  log_level: error\n")))

	writtenContent, readError := os.ReadFile(initializationPlan.FilePath)
	require.NoError(t, readError)
	require.Contains(t, string(writtenContent), "log_level: error")

	overwriteError := application.writeConfigurationFile(initializationPlan, []byte("common: {}\n"))
	require.Error(t, overwriteError)
	require.Contains(t, overwriteError.Error(), "pass --force to overwrite")

	application.configurationInitializationForced = true
	require.NoError(t, application.writeConfigurationFile(initializationPlan, []byte("common: {}\n")))
}
