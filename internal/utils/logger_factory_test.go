package utils_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/codexec/internal/utils"
)

func TestCreateLoggerOutputs(testInstance *testing.T) {
	testCases := []struct {
		name          string
		level         utils.LogLevel
		format        utils.LogFormat
		expectFailure bool
	}{
		{name: "structured_error_level", level: utils.LogLevelError, format: utils.LogFormatStructured},
		{name: "structured_debug_level", level: utils.LogLevelDebug, format: utils.LogFormatStructured},
		{name: "console_info_level", level: utils.LogLevelInfo, format: utils.LogFormatConsole},
		{name: "console_warn_level", level: utils.LogLevelWarn, format: utils.LogFormatConsole},
		{name: "unsupported_level", level: utils.LogLevel("verbose"), format: utils.LogFormatStructured, expectFailure: true},
		{name: "unsupported_format", level: utils.LogLevelInfo, format: utils.LogFormat("plain"), expectFailure: true},
	}

	factory := utils.NewLoggerFactory()

	for testIndex := range testCases {
		testCase := testCases[testIndex]
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			loggerOutputs, creationError := factory.CreateLoggerOutputs(testCase.level, testCase.format)
			if testCase.expectFailure {
				require.Error(testInstance, creationError)
				return
			}

			require.NoError(testInstance, creationError)
			require.NotNil(testInstance, loggerOutputs.DiagnosticLogger)
			require.NotNil(testInstance, loggerOutputs.ConsoleLogger)
		})
	}
}

func TestStructuredFormatSilencesConsoleLogger(testInstance *testing.T) {
	factory := utils.NewLoggerFactory()

	loggerOutputs, creationError := factory.CreateLoggerOutputs(utils.LogLevelError, utils.LogFormatStructured)
	require.NoError(testInstance, creationError)
	require.False(testInstance, loggerOutputs.ConsoleLogger.Core().Enabled(0))
}
