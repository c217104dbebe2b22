// Package processes inspects and manages codex processes running on the host.
package processes

import (
	"context"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const (
	codexCommandMarkerConstant       = "codex"
	openaiCodexCommandMarkerConstant = "openai-codex"
	bytesPerMegabyteConstant         = 1024 * 1024
	commandLineSeparatorConstant     = " "
	statusSeparatorConstant          = ","
)

// ProcessRecord describes a single observed codex process.
type ProcessRecord struct {
	ProcessID       int32     `json:"pid"`
	Name            string    `json:"name"`
	CommandLine     string    `json:"cmdline"`
	Created         time.Time `json:"created"`
	CPUPercent      float64   `json:"cpu_percent"`
	MemoryMegabytes float64   `json:"memory_mb"`
	Status          string    `json:"status"`
}

// Inventory enumerates codex processes through the host process table.
type Inventory struct{}

// NewInventory constructs an Inventory instance.
func NewInventory() Inventory {
	return Inventory{}
}

// FindCodexProcesses returns every running process whose command line references codex.
func (inventory Inventory) FindCodexProcesses(executionContext context.Context) ([]ProcessRecord, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}

	hostProcesses, listError := process.ProcessesWithContext(executionContext)
	if listError != nil {
		return nil, listError
	}

	codexProcesses := make([]ProcessRecord, 0)
	for _, hostProcess := range hostProcesses {
		commandLine, commandLineError := hostProcess.CmdlineSliceWithContext(executionContext)
		if commandLineError != nil {
			continue
		}
		joinedCommandLine := strings.Join(commandLine, commandLineSeparatorConstant)
		loweredCommandLine := strings.ToLower(joinedCommandLine)
		if !strings.Contains(loweredCommandLine, codexCommandMarkerConstant) && !strings.Contains(loweredCommandLine, openaiCodexCommandMarkerConstant) {
			continue
		}

		record := ProcessRecord{
			ProcessID:   hostProcess.Pid,
			CommandLine: joinedCommandLine,
		}

		if processName, nameError := hostProcess.NameWithContext(executionContext); nameError == nil {
			record.Name = processName
		}
		if createMilliseconds, createError := hostProcess.CreateTimeWithContext(executionContext); createError == nil {
			record.Created = time.UnixMilli(createMilliseconds)
		}
		if cpuPercent, cpuError := hostProcess.CPUPercentWithContext(executionContext); cpuError == nil {
			record.CPUPercent = cpuPercent
		}
		if memoryInfo, memoryError := hostProcess.MemoryInfoWithContext(executionContext); memoryError == nil && memoryInfo != nil {
			record.MemoryMegabytes = float64(memoryInfo.RSS) / bytesPerMegabyteConstant
		}
		if statusValues, statusError := hostProcess.StatusWithContext(executionContext); statusError == nil {
			record.Status = strings.Join(statusValues, statusSeparatorConstant)
		}

		codexProcesses = append(codexProcesses, record)
	}

	return codexProcesses, nil
}
