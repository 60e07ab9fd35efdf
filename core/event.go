package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType discriminates outbound protocol events.
type EventType string

const (
	// EventStatus is emitted on every workflow state transition.
	EventStatus EventType = "status"
	// EventWorkflowResults carries a full state snapshot, once on terminal
	// status and on demand via get_workflow_results.
	EventWorkflowResults EventType = "workflow_results"
	// EventError reports malformed requests, unknown ids and agent failures.
	EventError EventType = "error"
)

// Event is the unit pushed to subscribed observers. After construction it is
// immutable; the State field, when present, is a cloned snapshot so an event
// can be serialized at any time without racing the workflow.
type Event struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	WorkflowID  string         `json:"workflow_id,omitempty"`
	Status      Status         `json:"status,omitempty"`
	ActiveAgent AgentID        `json:"active_agent,omitempty"`
	Message     string         `json:"message,omitempty"`
	State       *WorkflowState `json:"state,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// NewID generates a unique identifier for events and workflows.
func NewID() string { return uuid.NewString() }

func newEvent(t EventType, workflowID string) Event {
	return Event{ID: NewID(), Type: t, WorkflowID: workflowID, Timestamp: time.Now().UTC()}
}

// NewStatusEvent reports a state transition to observers.
func NewStatusEvent(workflowID string, status Status, active AgentID, message string) Event {
	e := newEvent(EventStatus, workflowID)
	e.Status = status
	e.ActiveAgent = active
	e.Message = message
	return e
}

// NewResultsEvent carries a cloned snapshot of the workflow state.
func NewResultsEvent(workflowID string, state WorkflowState) Event {
	e := newEvent(EventWorkflowResults, workflowID)
	snap := state.Clone()
	e.Status = snap.Status
	e.State = &snap
	return e
}

// NewErrorEvent reports a failure tied to an (optionally known) workflow.
func NewErrorEvent(workflowID, message string) Event {
	e := newEvent(EventError, workflowID)
	e.Message = message
	return e
}
