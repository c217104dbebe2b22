package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tyemirov/codexec/internal/events"
)

const (
	defaultStepTimeoutConstant = 300 * time.Second
	defaultStepPauseConstant   = 2 * time.Second

	runnerNotConfiguredMessageConstant   = "plan executor codex runner not configured"
	executorLoggerMissingMessageConstant = "plan executor logger not configured"

	planStartedLogMessageConstant  = "plan execution starting"
	planFinishedLogMessageConstant = "plan execution finished"
	stepStartedLogMessageConstant  = "step execution starting"
	stepFinishedLogMessageConstant = "step execution finished"
	planNameLogFieldConstant       = "plan"
	stepTitleLogFieldConstant      = "step"
	stepStatusLogFieldConstant     = "status"
	stepExitCodeLogFieldConstant   = "exit_code"
	stepElapsedLogFieldConstant    = "elapsed"
	totalStepsLogFieldConstant     = "total_steps"
	completedStepsLogFieldConstant = "completed_steps"

	logStepStartedTemplateConstant   = "[%s] step %d/%d started: %s"
	logStepCompletedTemplateConstant = "[%s] step %d/%d completed: %s (%.1fs)"
	logStepFailedTemplateConstant    = "[%s] step %d/%d failed: %s (exit %d)"
	logStepTimedOutTemplateConstant  = "[%s] step %d/%d timed out: %s after %.0fs"
	logStepSkippedTemplateConstant   = "[%s] step %d/%d skipped: %s"
	logPlanHaltedTemplateConstant    = "[%s] plan halted: critical step failed: %s"
	logTimestampLayoutConstant       = "15:04:05"

	contextSeparatorConstant = "\n\n"

	emptyInstructionMessageConstant = "empty instruction"
	criticalHaltMessageConstant     = "critical step failed"
	timeoutMessageTemplateConstant  = "timed out after %s"
	exitCodeMessageTemplateConstant = "exit code %d"
)

// ExecutionOptions customises how a plan is executed.
type ExecutionOptions struct {
	WorkingDirectory string
	StepTimeout      time.Duration
	StepPause        time.Duration
	ReportDirectory  string
}

// PlanExecutor runs plan steps strictly in sequence and aggregates the outcome.
type PlanExecutor struct {
	codexRunner CodexRunner
	logger      *zap.Logger
	reporter    events.Reporter
	now         func() time.Time
	sleep       func(time.Duration)
}

// PlanExecutorOption customises PlanExecutor construction.
type PlanExecutorOption func(*PlanExecutor)

// WithClock overrides the executor's time source.
func WithClock(now func() time.Time) PlanExecutorOption {
	return func(executor *PlanExecutor) {
		if now != nil {
			executor.now = now
		}
	}
}

// WithSleeper overrides the pause implementation between steps.
func WithSleeper(sleep func(time.Duration)) PlanExecutorOption {
	return func(executor *PlanExecutor) {
		if sleep != nil {
			executor.sleep = sleep
		}
	}
}

var (
	// ErrCodexRunnerNotConfigured indicates the codex runner dependency was missing.
	ErrCodexRunnerNotConfigured = errors.New(runnerNotConfiguredMessageConstant)
	// ErrExecutorLoggerNotConfigured indicates the logger dependency was missing.
	ErrExecutorLoggerNotConfigured = errors.New(executorLoggerMissingMessageConstant)
)

// NewPlanExecutor constructs a PlanExecutor with the provided collaborators.
func NewPlanExecutor(codexRunner CodexRunner, logger *zap.Logger, reporter events.Reporter, options ...PlanExecutorOption) (*PlanExecutor, error) {
	if codexRunner == nil {
		return nil, ErrCodexRunnerNotConfigured
	}
	if logger == nil {
		return nil, ErrExecutorLoggerNotConfigured
	}

	executor := &PlanExecutor{
		codexRunner: codexRunner,
		logger:      logger,
		reporter:    reporter,
		now:         time.Now,
		sleep:       time.Sleep,
	}
	for _, option := range options {
		option(executor)
	}
	return executor, nil
}

// ExecutePlan runs every plan step in order and returns the aggregated report.
//
// A failed critical step halts the plan; the remaining steps are recorded as
// skipped. A failed non-critical step does not stop the sequence. The report
// is produced in every case, including an early halt.
func (executor *PlanExecutor) ExecutePlan(executionContext context.Context, plan Plan, options ExecutionOptions) Report {
	if executionContext == nil {
		executionContext = context.Background()
	}

	stepTimeout := options.StepTimeout
	if stepTimeout <= 0 {
		stepTimeout = defaultStepTimeoutConstant
	}
	stepPause := options.StepPause
	if stepPause < 0 {
		stepPause = defaultStepPauseConstant
	}

	executor.logger.Info(planStartedLogMessageConstant,
		zap.String(planNameLogFieldConstant, plan.Name),
		zap.Int(totalStepsLogFieldConstant, len(plan.Steps)),
	)
	executor.report(events.Event{
		Level:    events.EventLevelInfo,
		Code:     events.EventCodePlanStart,
		PlanName: plan.Name,
		Message:  fmt.Sprintf("%d steps", len(plan.Steps)),
	})

	stepResults := make([]StepResult, 0, len(plan.Steps))
	executionLog := make([]string, 0, len(plan.Steps)*2)
	halted := false

	for stepIndex, planStep := range plan.Steps {
		if halted {
			stepResults = append(stepResults, executor.skippedResult(planStep))
			executionLog = append(executionLog, executor.logLine(logStepSkippedTemplateConstant, stepIndex, len(plan.Steps), planStep.Title))
			executor.reportStep(plan.Name, planStep, events.EventLevelWarn, events.EventCodeStepSkipped, criticalHaltMessageConstant)
			continue
		}

		if len(strings.TrimSpace(planStep.Instruction)) == 0 {
			stepResults = append(stepResults, executor.skippedResult(planStep))
			executionLog = append(executionLog, executor.logLine(logStepSkippedTemplateConstant, stepIndex, len(plan.Steps), planStep.Title))
			executor.reportStep(plan.Name, planStep, events.EventLevelWarn, events.EventCodeStepSkipped, emptyInstructionMessageConstant)
			continue
		}

		executionLog = append(executionLog, executor.logLine(logStepStartedTemplateConstant, stepIndex, len(plan.Steps), planStep.Title))
		executor.logger.Info(stepStartedLogMessageConstant,
			zap.String(planNameLogFieldConstant, plan.Name),
			zap.String(stepTitleLogFieldConstant, planStep.Title),
		)
		executor.reportStep(plan.Name, planStep, events.EventLevelInfo, events.EventCodeStepStart, "")

		stepResult := executor.executeStep(executionContext, plan, planStep, stepTimeout, options.WorkingDirectory)
		stepResults = append(stepResults, stepResult)

		executor.logger.Info(stepFinishedLogMessageConstant,
			zap.String(planNameLogFieldConstant, plan.Name),
			zap.String(stepTitleLogFieldConstant, planStep.Title),
			zap.String(stepStatusLogFieldConstant, stepResult.Status),
			zap.Int(stepExitCodeLogFieldConstant, stepResult.ExitCode),
			zap.Float64(stepElapsedLogFieldConstant, stepResult.ElapsedSeconds),
		)

		switch {
		case stepResult.Status == StepStatusCompleted:
			executionLog = append(executionLog, executor.logLine(logStepCompletedTemplateConstant, stepIndex, len(plan.Steps), planStep.Title, stepResult.ElapsedSeconds))
			executor.reportStep(plan.Name, planStep, events.EventLevelInfo, events.EventCodeStepComplete, fmt.Sprintf("%.1fs", stepResult.ElapsedSeconds))
		case stepResult.TimedOut:
			executionLog = append(executionLog, executor.logLine(logStepTimedOutTemplateConstant, stepIndex, len(plan.Steps), planStep.Title, stepResult.ElapsedSeconds))
			executor.reportStep(plan.Name, planStep, events.EventLevelError, events.EventCodeStepTimeout, fmt.Sprintf(timeoutMessageTemplateConstant, stepTimeout))
		default:
			executionLog = append(executionLog, executor.logLine(logStepFailedTemplateConstant, stepIndex, len(plan.Steps), planStep.Title, stepResult.ExitCode))
			executor.reportStep(plan.Name, planStep, events.EventLevelError, events.EventCodeStepFailed, fmt.Sprintf(exitCodeMessageTemplateConstant, stepResult.ExitCode))
		}

		if stepResult.Status == StepStatusFailed && planStep.Critical {
			halted = true
			executionLog = append(executionLog, fmt.Sprintf(logPlanHaltedTemplateConstant, executor.now().Format(logTimestampLayoutConstant), planStep.Title))
			continue
		}

		if stepIndex < len(plan.Steps)-1 && stepPause > 0 {
			executor.sleep(stepPause)
		}
	}

	report := BuildReport(plan.Name, stepResults, executionLog, executor.now(), halted)

	executor.logger.Info(planFinishedLogMessageConstant,
		zap.String(planNameLogFieldConstant, plan.Name),
		zap.Int(totalStepsLogFieldConstant, report.TotalSteps),
		zap.Int(completedStepsLogFieldConstant, report.CompletedSteps),
	)
	executor.report(events.Event{
		Level:    events.EventLevelInfo,
		Code:     events.EventCodePlanComplete,
		PlanName: plan.Name,
		Message:  fmt.Sprintf("%d/%d completed, success rate %s", report.CompletedSteps, report.TotalSteps, report.SuccessRate),
	})

	return report
}

func (executor *PlanExecutor) executeStep(executionContext context.Context, plan Plan, planStep Step, stepTimeout time.Duration, workingDirectory string) StepResult {
	outcome, runError := executor.codexRunner.RunInstruction(executionContext, InstructionRequest{
		Instruction:      planStep.Instruction,
		Context:          combineContexts(plan.Context, planStep.Context),
		WorkingDirectory: workingDirectory,
		Timeout:          stepTimeout,
	})

	executor.recordStepDuration(planStep.Title, outcome.Elapsed)

	stepResult := StepResult{
		Title:          planStep.Title,
		Instruction:    planStep.Instruction,
		Critical:       planStep.Critical,
		ExitCode:       outcome.ExitCode,
		ProcessID:      outcome.ProcessID,
		TimedOut:       outcome.TimedOut,
		StandardOutput: outcome.StandardOutput,
		StandardError:  outcome.StandardError,
		ElapsedSeconds: outcome.Elapsed.Seconds(),
	}

	if runError == nil && outcome.ExitCode == 0 && !outcome.TimedOut {
		stepResult.Status = StepStatusCompleted
		return stepResult
	}

	stepResult.Status = StepStatusFailed
	return stepResult
}

// combineContexts merges the plan level context with a step level override.
// A non-empty step context is appended after the plan context so the more
// specific guidance arrives closest to the instruction.
func combineContexts(planContext string, stepContext string) string {
	trimmedPlanContext := strings.TrimSpace(planContext)
	trimmedStepContext := strings.TrimSpace(stepContext)
	switch {
	case len(trimmedStepContext) == 0:
		return trimmedPlanContext
	case len(trimmedPlanContext) == 0:
		return trimmedStepContext
	default:
		return trimmedPlanContext + contextSeparatorConstant + trimmedStepContext
	}
}

type stepDurationRecorder interface {
	RecordStepDuration(stepTitle string, duration time.Duration)
}

func (executor *PlanExecutor) recordStepDuration(stepTitle string, duration time.Duration) {
	durationRecorder, recorderAvailable := executor.reporter.(stepDurationRecorder)
	if !recorderAvailable {
		return
	}
	durationRecorder.RecordStepDuration(stepTitle, duration)
}

func (executor *PlanExecutor) skippedResult(planStep Step) StepResult {
	return StepResult{
		Title:       planStep.Title,
		Instruction: planStep.Instruction,
		Critical:    planStep.Critical,
		Status:      StepStatusSkipped,
	}
}

func (executor *PlanExecutor) logLine(template string, stepIndex int, totalSteps int, arguments ...any) string {
	prefix := []any{executor.now().Format(logTimestampLayoutConstant), stepIndex + 1, totalSteps}
	return fmt.Sprintf(template, append(prefix, arguments...)...)
}

func (executor *PlanExecutor) report(event events.Event) {
	if executor.reporter == nil {
		return
	}
	executor.reporter.Report(event)
}

func (executor *PlanExecutor) reportStep(planName string, planStep Step, level events.EventLevel, code string, message string) {
	executor.report(events.Event{
		Level:     level,
		Code:      code,
		PlanName:  planName,
		StepTitle: planStep.Title,
		Message:   message,
	})
}
