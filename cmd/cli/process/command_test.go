package process_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	processcmd "github.com/tyemirov/codexec/cmd/cli/process"
	"github.com/tyemirov/codexec/internal/processes"
)

type stubProcessFinder struct {
	records []processes.ProcessRecord
}

func (finder *stubProcessFinder) FindCodexProcesses(context.Context) ([]processes.ProcessRecord, error) {
	return finder.records, nil
}

func buildProcessCommand(testInstance *testing.T, finder *stubProcessFinder) (*cobra.Command, *bytes.Buffer) {
	testInstance.Helper()

	tracker := processes.NewTrackerWithPath(filepath.Join(testInstance.TempDir(), "pids.json"))
	builder := &processcmd.CommandBuilder{
		LoggerProvider:        func() *zap.Logger { return zap.NewNop() },
		ConfigurationProvider: processcmd.DefaultCommandConfiguration,
		ManagerFactory: func(logger *zap.Logger) (*processes.Manager, error) {
			return processes.NewManager(finder, tracker, logger), nil
		},
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetErr(outputBuffer)
	command.SetContext(context.Background())
	return command, outputBuffer
}

func TestProcessStatusCommand(testInstance *testing.T) {
	finder := &stubProcessFinder{records: []processes.ProcessRecord{
		{ProcessID: 4242, Name: "codex", CPUPercent: 10, MemoryMegabytes: 64},
	}}
	command, outputBuffer := buildProcessCommand(testInstance, finder)
	command.SetArgs([]string{"status"})

	require.NoError(testInstance, command.Execute())

	var statusReport processes.StatusReport
	require.NoError(testInstance, json.Unmarshal(outputBuffer.Bytes(), &statusReport))
	require.Equal(testInstance, 1, statusReport.ActiveProcesses)
	require.Len(testInstance, statusReport.Processes, 1)
	require.Equal(testInstance, int32(4242), statusReport.Processes[0].ProcessID)
}

func TestProcessKillCommandRejectsInvalidPid(testInstance *testing.T) {
	command, _ := buildProcessCommand(testInstance, &stubProcessFinder{})
	command.SetArgs([]string{"kill", "not-a-pid"})

	executionError := command.Execute()
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), `invalid process id "not-a-pid"`)
}

func TestProcessCleanupCommand(testInstance *testing.T) {
	command, outputBuffer := buildProcessCommand(testInstance, &stubProcessFinder{})
	command.SetArgs([]string{"cleanup", "--max-age-hours", "12", "--max-cpu", "80"})

	require.NoError(testInstance, command.Execute())
	require.Contains(testInstance, outputBuffer.String(), "terminated 0 stale and 0 high-cpu processes")
}

func TestProcessKillAllCommand(testInstance *testing.T) {
	command, outputBuffer := buildProcessCommand(testInstance, &stubProcessFinder{})
	command.SetArgs([]string{"killall"})

	require.NoError(testInstance, command.Execute())
	require.Contains(testInstance, outputBuffer.String(), "terminated 0 processes")
}

func TestProcessCommandConfigurationSanitize(testInstance *testing.T) {
	sanitized := processcmd.CommandConfiguration{StaleThresholdHours: -1, CPUThresholdPercent: 0}.Sanitize()
	require.InDelta(testInstance, 24.0, sanitized.StaleThresholdHours, 0.001)
	require.InDelta(testInstance, 90.0, sanitized.CPUThresholdPercent, 0.001)
}
