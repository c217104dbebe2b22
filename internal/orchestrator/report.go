package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// StepStatusCompleted marks a step whose instruction exited successfully.
	StepStatusCompleted = "completed"
	// StepStatusFailed marks a step whose instruction failed or timed out.
	StepStatusFailed = "failed"
	// StepStatusSkipped marks a step that never ran.
	StepStatusSkipped = "skipped"

	reportFileNameTemplateConstant       = "codex_report_%s.json"
	reportTimestampLayoutConstant        = "20060102_150405"
	successRateTemplateConstant          = "%.1f%%"
	successRateEmptyPlanConstant         = "0%"
	reportMarshalErrorTemplateConstant   = "failed to encode report: %w"
	reportWriteErrorTemplateConstant     = "failed to write report: %w"
	reportDirectoryErrorTemplateConstant = "failed to create report directory: %w"
	reportFilePermissionsConstant        = 0o644
	reportDirectoryPermissionsConstant   = 0o755
)

// StepResult captures the observable outcome of one executed plan step.
type StepResult struct {
	Title          string  `json:"title"`
	Instruction    string  `json:"instruction"`
	Critical       bool    `json:"critical"`
	Status         string  `json:"status"`
	ExitCode       int     `json:"exit_code"`
	ProcessID      int     `json:"process_id"`
	TimedOut       bool    `json:"timed_out"`
	StandardOutput string  `json:"stdout"`
	StandardError  string  `json:"stderr"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Report aggregates the outcome of a complete plan execution.
type Report struct {
	PlanName       string       `json:"plan_name"`
	Timestamp      time.Time    `json:"timestamp"`
	TotalSteps     int          `json:"total_steps"`
	CompletedSteps int          `json:"completed_steps"`
	FailedSteps    int          `json:"failed_steps"`
	SkippedSteps   int          `json:"skipped_steps"`
	SuccessRate    string       `json:"success_rate"`
	Halted         bool         `json:"halted"`
	Steps          []StepResult `json:"steps"`
	Log            []string     `json:"log"`
}

// BuildReport assembles a Report from per-step results and the execution log.
func BuildReport(planName string, stepResults []StepResult, executionLog []string, timestamp time.Time, halted bool) Report {
	completedCount := 0
	failedCount := 0
	skippedCount := 0
	for _, stepResult := range stepResults {
		switch stepResult.Status {
		case StepStatusCompleted:
			completedCount++
		case StepStatusFailed:
			failedCount++
		case StepStatusSkipped:
			skippedCount++
		}
	}

	return Report{
		PlanName:       planName,
		Timestamp:      timestamp,
		TotalSteps:     len(stepResults),
		CompletedSteps: completedCount,
		FailedSteps:    failedCount,
		SkippedSteps:   skippedCount,
		SuccessRate:    formatSuccessRate(completedCount, len(stepResults)),
		Halted:         halted,
		Steps:          append([]StepResult{}, stepResults...),
		Log:            append([]string{}, executionLog...),
	}
}

// WriteReport serializes the report into the target directory and returns the written path.
func WriteReport(report Report, reportDirectory string) (string, error) {
	trimmedDirectory := strings.TrimSpace(reportDirectory)
	if len(trimmedDirectory) == 0 {
		trimmedDirectory = "."
	}

	if directoryError := os.MkdirAll(trimmedDirectory, reportDirectoryPermissionsConstant); directoryError != nil {
		return "", fmt.Errorf(reportDirectoryErrorTemplateConstant, directoryError)
	}

	reportContent, marshalError := json.MarshalIndent(report, "", "  ")
	if marshalError != nil {
		return "", fmt.Errorf(reportMarshalErrorTemplateConstant, marshalError)
	}

	reportFileName := fmt.Sprintf(reportFileNameTemplateConstant, report.Timestamp.Format(reportTimestampLayoutConstant))
	reportPath := filepath.Join(trimmedDirectory, reportFileName)
	if writeError := os.WriteFile(reportPath, reportContent, reportFilePermissionsConstant); writeError != nil {
		return "", fmt.Errorf(reportWriteErrorTemplateConstant, writeError)
	}

	return reportPath, nil
}

func formatSuccessRate(completedCount int, totalCount int) string {
	if totalCount == 0 {
		return successRateEmptyPlanConstant
	}
	return fmt.Sprintf(successRateTemplateConstant, float64(completedCount)/float64(totalCount)*100)
}
