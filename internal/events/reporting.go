// Package events provides structured progress reporting for plan execution.
package events

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	defaultLevelFieldWidth = 5
	defaultEventFieldWidth = 14
	defaultStepFieldWidth  = 32
	defaultHeaderWidth     = 80
	defaultTimestampLayout = "15:04:05"
)

// Event codes emitted during plan execution.
const (
	EventCodePlanStart     = "PLAN_START"
	EventCodePlanComplete  = "PLAN_COMPLETE"
	EventCodeStepStart     = "STEP_START"
	EventCodeStepComplete  = "STEP_COMPLETE"
	EventCodeStepFailed    = "STEP_FAILED"
	EventCodeStepSkipped   = "STEP_SKIPPED"
	EventCodeStepTimeout   = "STEP_TIMEOUT"
	EventCodeReportWritten = "REPORT_WRITTEN"
)

// EventLevel describes the severity of a reported execution event.
type EventLevel string

// Supported event levels.
const (
	EventLevelInfo  EventLevel = "INFO"
	EventLevelWarn  EventLevel = "WARN"
	EventLevelError EventLevel = "ERROR"
)

// Event captures the structured information associated with an execution action.
type Event struct {
	Timestamp time.Time
	Level     EventLevel
	Code      string
	PlanName  string
	StepTitle string
	Message   string
	Details   map[string]string
}

// Reporter emits structured execution events.
type Reporter interface {
	Report(event Event)
}

// SummaryReporter augments Reporter with summary emission support.
type SummaryReporter interface {
	Reporter
	Summary() string
	SummaryData() SummaryData
	PrintSummary()
	RecordStepDuration(stepTitle string, duration time.Duration)
}

// SummaryData captures aggregated reporter metrics suitable for serialization.
type SummaryData struct {
	TotalSteps           int                            `json:"total_steps"`
	EventCounts          map[string]int                 `json:"event_counts"`
	LevelCounts          map[EventLevel]int             `json:"level_counts"`
	DurationHuman        string                         `json:"duration_human"`
	DurationMilliseconds int64                          `json:"duration_ms"`
	StepDurations        map[string]StepDurationSummary `json:"step_durations"`
}

// StepDurationSummary captures aggregated timing metrics for a plan step.
type StepDurationSummary struct {
	Count                       int   `json:"count"`
	TotalDurationMilliseconds   int64 `json:"total_duration_ms"`
	AverageDurationMilliseconds int64 `json:"average_duration_ms"`
}

// ReporterOption customises StructuredReporter behaviour.
type ReporterOption func(*StructuredReporter)

// WithPlanHeaders toggles per-plan headers in console output.
func WithPlanHeaders(enabled bool) ReporterOption {
	return func(reporter *StructuredReporter) {
		reporter.includePlanHeaders = enabled
	}
}

// WithSubscriber registers an additional reporter that observes every event.
func WithSubscriber(subscriber Reporter) ReporterOption {
	return func(reporter *StructuredReporter) {
		if subscriber != nil {
			reporter.subscribers = append(reporter.subscribers, subscriber)
		}
	}
}

// WithNowProvider overrides the time source used for timestamps and duration calculations.
func WithNowProvider(provider func() time.Time) ReporterOption {
	return func(reporter *StructuredReporter) {
		if provider != nil {
			reporter.now = provider
			reporter.startTime = provider()
		}
	}
}

// StructuredReporter renders execution events in aligned console columns while collecting counters.
type StructuredReporter struct {
	outputWriter       io.Writer
	errorWriter        io.Writer
	includePlanHeaders bool
	now                func() time.Time
	subscribers        []Reporter

	mutex         sync.Mutex
	lastPlan      string
	startTime     time.Time
	eventCounts   map[string]int
	levelCounts   map[EventLevel]int
	seenSteps     map[string]struct{}
	stepDurations map[string]*stepDurationAccumulator
	columns       columnConfiguration
}

type columnConfiguration struct {
	levelWidth  int
	codeWidth   int
	stepWidth   int
	headerWidth int
}

type stepDurationAccumulator struct {
	count int
	total time.Duration
}

// NewStructuredReporter constructs a StructuredReporter that writes to the provided sinks.
func NewStructuredReporter(output io.Writer, errors io.Writer, options ...ReporterOption) *StructuredReporter {
	if output == nil {
		output = os.Stdout
	}
	if errors == nil {
		errors = output
	}

	reporter := &StructuredReporter{
		outputWriter:       output,
		errorWriter:        errors,
		includePlanHeaders: true,
		now:                time.Now,
		startTime:          time.Now(),
		eventCounts:        make(map[string]int),
		levelCounts:        make(map[EventLevel]int),
		seenSteps:          make(map[string]struct{}),
		stepDurations:      make(map[string]*stepDurationAccumulator),
		columns: columnConfiguration{
			levelWidth:  defaultLevelFieldWidth,
			codeWidth:   defaultEventFieldWidth,
			stepWidth:   defaultStepFieldWidth,
			headerWidth: defaultHeaderWidth,
		},
	}

	for _, option := range options {
		option(reporter)
	}

	return reporter
}

// RecordStepDuration aggregates timing information for the provided step.
func (reporter *StructuredReporter) RecordStepDuration(stepTitle string, duration time.Duration) {
	if reporter == nil {
		return
	}

	trimmedTitle := strings.TrimSpace(stepTitle)
	if len(trimmedTitle) == 0 {
		return
	}
	if duration < 0 {
		duration = 0
	}

	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()

	accumulator, exists := reporter.stepDurations[trimmedTitle]
	if !exists || accumulator == nil {
		accumulator = &stepDurationAccumulator{}
		reporter.stepDurations[trimmedTitle] = accumulator
	}

	accumulator.count++
	accumulator.total += duration
}

// Report logs the provided event using the configured formatting rules.
func (reporter *StructuredReporter) Report(event Event) {
	if reporter == nil {
		return
	}

	reporter.mutex.Lock()

	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = reporter.now()
	}

	level := normalizeLevel(event.Level)
	code := normalizeCode(event.Code)
	planName := strings.TrimSpace(event.PlanName)
	stepTitle := strings.TrimSpace(event.StepTitle)
	message := strings.TrimSpace(event.Message)

	writer := reporter.outputWriter
	if level == EventLevelError && reporter.errorWriter != nil {
		writer = reporter.errorWriter
	}

	if len(stepTitle) > 0 {
		reporter.seenSteps[stepTitle] = struct{}{}
	}
	reporter.eventCounts[code]++
	reporter.levelCounts[level]++

	if reporter.includePlanHeaders && len(planName) > 0 && planName != reporter.lastPlan {
		reporter.printPlanHeader(writer, planName)
		reporter.lastPlan = planName
	}

	consolePart := reporter.formatConsolePart(timestamp, level, code, stepTitle, message)
	if len(consolePart) > 0 {
		fmt.Fprintln(writer, consolePart)
	}

	subscribers := reporter.subscribers
	reporter.mutex.Unlock()

	normalized := event
	normalized.Timestamp = timestamp
	normalized.Level = level
	normalized.Code = code
	for _, subscriber := range subscribers {
		subscriber.Report(normalized)
	}
}

// SummaryData produces a serializable snapshot of reporter metrics.
func (reporter *StructuredReporter) SummaryData() SummaryData {
	if reporter == nil {
		return SummaryData{
			EventCounts:   make(map[string]int),
			LevelCounts:   make(map[EventLevel]int),
			StepDurations: make(map[string]StepDurationSummary),
			DurationHuman: "0s",
		}
	}

	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()

	duration := reporter.now().Sub(reporter.startTime)
	if duration < 0 {
		duration = 0
	}

	eventCounts := cloneStringIntMap(reporter.eventCounts)
	levelCounts := cloneLevelCountMap(reporter.levelCounts)
	stepDurations := make(map[string]StepDurationSummary, len(reporter.stepDurations))

	for stepTitle, accumulator := range reporter.stepDurations {
		if accumulator == nil || accumulator.count == 0 {
			continue
		}
		total := accumulator.total
		stepDurations[stepTitle] = StepDurationSummary{
			Count:                       accumulator.count,
			TotalDurationMilliseconds:   durationMilliseconds(total),
			AverageDurationMilliseconds: averageDurationMilliseconds(total, accumulator.count),
		}
	}

	return SummaryData{
		TotalSteps:           len(reporter.seenSteps),
		EventCounts:          eventCounts,
		LevelCounts:          levelCounts,
		DurationHuman:        formatDuration(duration),
		DurationMilliseconds: durationMilliseconds(duration),
		StepDurations:        stepDurations,
	}
}

// Summary renders the aggregate statistics collected during reporting.
func (reporter *StructuredReporter) Summary() string {
	data := reporter.SummaryData()
	if data.TotalSteps == 0 && len(data.EventCounts) == 0 {
		return "Summary: total.steps=0 duration_human=0s duration_ms=0"
	}

	keys := make([]string, 0, len(data.EventCounts))
	for key := range data.EventCounts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+4)
	parts = append(parts, fmt.Sprintf("Summary: total.steps=%d", data.TotalSteps))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", key, data.EventCounts[key]))
	}

	parts = append(parts, fmt.Sprintf("%s=%d", EventLevelWarn, data.LevelCounts[EventLevelWarn]))
	parts = append(parts, fmt.Sprintf("%s=%d", EventLevelError, data.LevelCounts[EventLevelError]))
	parts = append(parts, fmt.Sprintf("duration_human=%s", data.DurationHuman))
	parts = append(parts, fmt.Sprintf("duration_ms=%d", data.DurationMilliseconds))

	return strings.Join(parts, " ")
}

// PrintSummary writes the computed summary to the primary output writer.
func (reporter *StructuredReporter) PrintSummary() {
	if reporter == nil {
		return
	}
	summary := reporter.Summary()
	if len(strings.TrimSpace(summary)) == 0 {
		return
	}

	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()

	fmt.Fprintln(reporter.outputWriter, summary)
}

func cloneStringIntMap(source map[string]int) map[string]int {
	if len(source) == 0 {
		return make(map[string]int)
	}
	target := make(map[string]int, len(source))
	for key, value := range source {
		target[key] = value
	}
	return target
}

func cloneLevelCountMap(source map[EventLevel]int) map[EventLevel]int {
	if len(source) == 0 {
		return make(map[EventLevel]int)
	}
	target := make(map[EventLevel]int, len(source))
	for key, value := range source {
		target[key] = value
	}
	return target
}

func formatDuration(value time.Duration) string {
	if value < 0 {
		value = 0
	}
	rounded := value.Round(time.Millisecond)
	if rounded == 0 && value > 0 {
		rounded = time.Millisecond
	}
	return rounded.String()
}

func (reporter *StructuredReporter) printPlanHeader(writer io.Writer, planName string) {
	if writer == nil {
		return
	}

	headerContent := fmt.Sprintf("plan: %s", planName)
	paddingWidth := reporter.columns.headerWidth - len(headerContent) - 4
	if paddingWidth < 0 {
		paddingWidth = 0
	}
	padding := strings.Repeat("-", paddingWidth)
	fmt.Fprintf(writer, "-- %s %s\n", headerContent, padding)
}

func durationMilliseconds(value time.Duration) int64 {
	if value < 0 {
		value = 0
	}
	rounded := value.Round(time.Millisecond)
	if rounded == 0 && value > 0 {
		rounded = time.Millisecond
	}
	return rounded.Milliseconds()
}

func averageDurationMilliseconds(total time.Duration, count int) int64 {
	if count <= 0 {
		return 0
	}
	average := total / time.Duration(count)
	return durationMilliseconds(average)
}

func (reporter *StructuredReporter) formatConsolePart(timestamp time.Time, level EventLevel, code string, stepTitle string, message string) string {
	levelField := fmt.Sprintf("%-*s", reporter.columns.levelWidth, string(level))
	codeField := fmt.Sprintf("%-*s", reporter.columns.codeWidth, code)

	switch {
	case len(stepTitle) > 0 && len(message) > 0:
		stepField := fmt.Sprintf("%-*s", reporter.columns.stepWidth, stepTitle)
		return fmt.Sprintf("%s %s %s %s %s", timestamp.Format(defaultTimestampLayout), levelField, codeField, stepField, message)
	case len(stepTitle) > 0:
		return fmt.Sprintf("%s %s %s %s", timestamp.Format(defaultTimestampLayout), levelField, codeField, stepTitle)
	case len(message) > 0:
		return fmt.Sprintf("%s %s %s %s", timestamp.Format(defaultTimestampLayout), levelField, codeField, message)
	default:
		return fmt.Sprintf("%s %s %s", timestamp.Format(defaultTimestampLayout), levelField, code)
	}
}

func normalizeLevel(level EventLevel) EventLevel {
	switch level {
	case EventLevelWarn:
		return EventLevelWarn
	case EventLevelError:
		return EventLevelError
	default:
		return EventLevelInfo
	}
}

func normalizeCode(code string) string {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) == 0 {
		return "UNKNOWN"
	}
	uppercased := strings.ToUpper(trimmed)
	return strings.ReplaceAll(uppercased, " ", "_")
}
