package monitorcmd_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/codexec/cmd/cli/monitorcmd"
	"github.com/tyemirov/codexec/internal/monitor"
)

func TestMonitorCommandServesUntilContextCancelled(testInstance *testing.T) {
	builder := &monitorcmd.CommandBuilder{
		ConfigurationProvider: func() monitorcmd.CommandConfiguration {
			return monitorcmd.CommandConfiguration{Address: "127.0.0.1:0"}
		},
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	executionContext, cancelExecution := context.WithCancel(context.Background())
	command.SetContext(executionContext)

	runErrors := make(chan error, 1)
	go func() {
		runErrors <- command.RunE(command, nil)
	}()

	time.Sleep(100 * time.Millisecond)
	cancelExecution()

	select {
	case runError := <-runErrors:
		require.NoError(testInstance, runError)
	case <-time.After(5 * time.Second):
		testInstance.Fatal("monitor command did not stop after context cancellation")
	}
}

func TestMonitorCommandAddressFlagOverridesConfiguration(testInstance *testing.T) {
	builder := &monitorcmd.CommandBuilder{}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	require.NoError(testInstance, command.Flags().Set("address", "127.0.0.1:0"))

	executionContext, cancelExecution := context.WithCancel(context.Background())
	command.SetContext(executionContext)

	runErrors := make(chan error, 1)
	go func() {
		runErrors <- command.RunE(command, nil)
	}()

	time.Sleep(100 * time.Millisecond)
	cancelExecution()
	require.NoError(testInstance, <-runErrors)
}

func TestMonitorCommandConfigurationSanitize(testInstance *testing.T) {
	sanitized := monitorcmd.CommandConfiguration{Address: "   "}.Sanitize()
	require.Equal(testInstance, monitor.DefaultAddressConstant, sanitized.Address)
}
