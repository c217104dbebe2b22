// Package monitor serves a live view of plan execution over HTTP.
package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/tyemirov/codexec/internal/events"
)

const (
	logHistoryLimitConstant      = 100
	logLineTemplateConstant      = "[%s] %s %s %s"
	logTimestampLayoutConstant   = "15:04:05"
	subscriberBufferSizeConstant = 16
)

// StepState describes the last observed status of one plan step.
type StepState struct {
	Title   string `json:"title"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ExecutionState is the serializable snapshot served to monitor clients.
type ExecutionState struct {
	PlanName  string      `json:"plan_name"`
	StartedAt time.Time   `json:"started_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Steps     []StepState `json:"steps"`
	Log       []string    `json:"log"`
}

// Hub collects execution events and fans them out to monitor subscribers.
type Hub struct {
	mutex       sync.Mutex
	state       ExecutionState
	stepIndex   map[string]int
	subscribers map[chan string]struct{}
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{
		stepIndex:   map[string]int{},
		subscribers: map[chan string]struct{}{},
	}
}

// Report implements events.Reporter by folding each event into the hub state.
func (hub *Hub) Report(event events.Event) {
	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	hub.mutex.Lock()

	if event.Code == events.EventCodePlanStart {
		hub.state = ExecutionState{
			PlanName:  event.PlanName,
			StartedAt: timestamp,
		}
		hub.stepIndex = map[string]int{}
	}
	hub.state.UpdatedAt = timestamp

	if len(event.StepTitle) > 0 {
		hub.applyStepEvent(event)
	}

	logLine := fmt.Sprintf(logLineTemplateConstant, timestamp.Format(logTimestampLayoutConstant), event.Code, event.StepTitle, event.Message)
	hub.state.Log = append(hub.state.Log, logLine)
	if len(hub.state.Log) > logHistoryLimitConstant {
		hub.state.Log = hub.state.Log[len(hub.state.Log)-logHistoryLimitConstant:]
	}

	// Sends stay under the mutex so a concurrent cancel cannot close a
	// channel between snapshot and send; the non-blocking send keeps the
	// critical section bounded.
	for subscriber := range hub.subscribers {
		select {
		case subscriber <- logLine:
		default:
		}
	}
	hub.mutex.Unlock()
}

func (hub *Hub) applyStepEvent(event events.Event) {
	status := ""
	switch event.Code {
	case events.EventCodeStepStart:
		status = "running"
	case events.EventCodeStepComplete:
		status = "completed"
	case events.EventCodeStepFailed, events.EventCodeStepTimeout:
		status = "failed"
	case events.EventCodeStepSkipped:
		status = "skipped"
	default:
		return
	}

	index, known := hub.stepIndex[event.StepTitle]
	if !known {
		hub.state.Steps = append(hub.state.Steps, StepState{Title: event.StepTitle})
		index = len(hub.state.Steps) - 1
		hub.stepIndex[event.StepTitle] = index
	}
	hub.state.Steps[index].Status = status
	hub.state.Steps[index].Message = event.Message
}

// State returns a copy of the current execution snapshot.
func (hub *Hub) State() ExecutionState {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	snapshot := hub.state
	snapshot.Steps = append([]StepState{}, hub.state.Steps...)
	snapshot.Log = append([]string{}, hub.state.Log...)
	return snapshot
}

// Subscribe registers a new event stream; the returned cancel function must be called when done.
func (hub *Hub) Subscribe() (<-chan string, func()) {
	subscription := make(chan string, subscriberBufferSizeConstant)

	hub.mutex.Lock()
	hub.subscribers[subscription] = struct{}{}
	hub.mutex.Unlock()

	cancel := func() {
		hub.mutex.Lock()
		if _, subscribed := hub.subscribers[subscription]; subscribed {
			delete(hub.subscribers, subscription)
			close(subscription)
		}
		hub.mutex.Unlock()
	}
	return subscription, cancel
}
