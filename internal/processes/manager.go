package processes

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

const (
	defaultStaleThresholdConstant  = 24 * time.Hour
	defaultCPUThresholdConstant    = 90.0
	terminationGracePeriodConstant = 2 * time.Second

	processNotFoundTemplateConstant   = "process %d not found: %w"
	processKillErrorTemplateConstant  = "failed to kill process %d: %w"
	processTerminatedMessageConstant  = "process terminated"
	processForceKilledMessageConstant = "process force killed"
	staleProcessMessageConstant       = "cleaning stale process"
	highCPUProcessMessageConstant     = "killing high cpu process"
	processIDFieldConstant            = "pid"
	processAgeFieldConstant           = "age_hours"
	processCPUFieldConstant           = "cpu_percent"
)

// StatusReport summarizes all observed and tracked codex processes.
type StatusReport struct {
	Timestamp            time.Time                 `json:"timestamp"`
	ActiveProcesses      int                       `json:"active_processes"`
	TrackedProcesses     int                       `json:"tracked_pids"`
	TotalCPUPercent      float64                   `json:"total_cpu"`
	TotalMemoryMegabytes float64                   `json:"total_memory_mb"`
	Processes            []ProcessRecord           `json:"processes"`
	Tracked              map[string]TrackedProcess `json:"tracked"`
}

// ProcessFinder locates codex processes on the host.
type ProcessFinder interface {
	FindCodexProcesses(executionContext context.Context) ([]ProcessRecord, error)
}

// Manager terminates and cleans up codex processes.
type Manager struct {
	inventory ProcessFinder
	tracker   *Tracker
	logger    *zap.Logger
	sleep     func(time.Duration)
}

// NewManager constructs a Manager with the provided collaborators.
func NewManager(inventory ProcessFinder, tracker *Tracker, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		inventory: inventory,
		tracker:   tracker,
		logger:    logger,
		sleep:     time.Sleep,
	}
}

// KillProcess terminates a single process, gracefully first unless force is requested.
func (manager *Manager) KillProcess(executionContext context.Context, processID int32, force bool) error {
	if executionContext == nil {
		executionContext = context.Background()
	}

	targetProcess, lookupError := process.NewProcessWithContext(executionContext, processID)
	if lookupError != nil {
		manager.forgetTracked(processID)
		return fmt.Errorf(processNotFoundTemplateConstant, processID, lookupError)
	}

	if !force {
		if terminateError := targetProcess.TerminateWithContext(executionContext); terminateError == nil {
			manager.sleep(terminationGracePeriodConstant)
		}
	}

	stillRunning, _ := targetProcess.IsRunningWithContext(executionContext)
	if force || stillRunning {
		if killError := targetProcess.KillWithContext(executionContext); killError != nil {
			return fmt.Errorf(processKillErrorTemplateConstant, processID, killError)
		}
		manager.logger.Info(processForceKilledMessageConstant, zap.Int32(processIDFieldConstant, processID))
	} else {
		manager.logger.Info(processTerminatedMessageConstant, zap.Int32(processIDFieldConstant, processID))
	}

	manager.forgetTracked(processID)
	return nil
}

// CleanupStale kills codex processes older than the provided threshold and reports how many were killed.
func (manager *Manager) CleanupStale(executionContext context.Context, staleThreshold time.Duration) (int, error) {
	if staleThreshold <= 0 {
		staleThreshold = defaultStaleThresholdConstant
	}

	codexProcesses, findError := manager.inventory.FindCodexProcesses(executionContext)
	if findError != nil {
		return 0, findError
	}

	killedCount := 0
	for _, codexProcess := range codexProcesses {
		processAge := time.Since(codexProcess.Created)
		if processAge <= staleThreshold {
			continue
		}
		manager.logger.Info(staleProcessMessageConstant,
			zap.Int32(processIDFieldConstant, codexProcess.ProcessID),
			zap.Float64(processAgeFieldConstant, processAge.Hours()),
		)
		if killError := manager.KillProcess(executionContext, codexProcess.ProcessID, false); killError != nil {
			continue
		}
		killedCount++
	}
	return killedCount, nil
}

// CleanupHighCPU force kills codex processes exceeding the provided CPU threshold.
func (manager *Manager) CleanupHighCPU(executionContext context.Context, cpuThreshold float64) (int, error) {
	if cpuThreshold <= 0 {
		cpuThreshold = defaultCPUThresholdConstant
	}

	codexProcesses, findError := manager.inventory.FindCodexProcesses(executionContext)
	if findError != nil {
		return 0, findError
	}

	killedCount := 0
	for _, codexProcess := range codexProcesses {
		if codexProcess.CPUPercent <= cpuThreshold {
			continue
		}
		manager.logger.Info(highCPUProcessMessageConstant,
			zap.Int32(processIDFieldConstant, codexProcess.ProcessID),
			zap.Float64(processCPUFieldConstant, codexProcess.CPUPercent),
		)
		if killError := manager.KillProcess(executionContext, codexProcess.ProcessID, true); killError != nil {
			continue
		}
		killedCount++
	}
	return killedCount, nil
}

// KillAll terminates every observed codex process and reports how many were killed.
func (manager *Manager) KillAll(executionContext context.Context) (int, error) {
	codexProcesses, findError := manager.inventory.FindCodexProcesses(executionContext)
	if findError != nil {
		return 0, findError
	}

	killedCount := 0
	for _, codexProcess := range codexProcesses {
		if killError := manager.KillProcess(executionContext, codexProcess.ProcessID, false); killError != nil {
			continue
		}
		killedCount++
	}
	return killedCount, nil
}

// StatusReport collects every observed and tracked codex process into a summary.
func (manager *Manager) StatusReport(executionContext context.Context) (StatusReport, error) {
	codexProcesses, findError := manager.inventory.FindCodexProcesses(executionContext)
	if findError != nil {
		return StatusReport{}, findError
	}

	totalCPUPercent := 0.0
	totalMemoryMegabytes := 0.0
	for _, codexProcess := range codexProcesses {
		totalCPUPercent += codexProcess.CPUPercent
		totalMemoryMegabytes += codexProcess.MemoryMegabytes
	}

	tracked := map[string]TrackedProcess{}
	if manager.tracker != nil {
		tracked = manager.tracker.Tracked()
	}

	return StatusReport{
		Timestamp:            time.Now(),
		ActiveProcesses:      len(codexProcesses),
		TrackedProcesses:     len(tracked),
		TotalCPUPercent:      totalCPUPercent,
		TotalMemoryMegabytes: totalMemoryMegabytes,
		Processes:            codexProcesses,
		Tracked:              tracked,
	}, nil
}

func (manager *Manager) forgetTracked(processID int32) {
	if manager.tracker == nil {
		return
	}
	_ = manager.tracker.Forget(processID)
}
