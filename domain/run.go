package domain

import (
	"encoding/json"
	"time"
)

// RunStatus represents the status of an invocation run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusHandoff RunStatus = "HANDOFF"
	RunStatusDone    RunStatus = "DONE"
	RunStatusFailed  RunStatus = "FAILED"
)

// EventType represents the type of a run log event.
type EventType string

const (
	EventTypeInvocationStarted EventType = "invocation_started"
	EventTypeInvocationDone    EventType = "invocation_done"
	EventTypeInvocationFailed  EventType = "invocation_failed"
	EventTypeHandoffStarted    EventType = "handoff_started"
	EventTypeReplyReceived     EventType = "reply_received"
	EventTypeReplyDropped      EventType = "reply_dropped"
)

// Run represents a single execution of an agent.
type Run struct {
	RunID     string          `json:"run_id"`
	AgentID   string          `json:"agent_id"`
	Trigger   TriggerType     `json:"trigger"`
	Status    RunStatus       `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
	Error     json.RawMessage `json:"error,omitempty"`
}

// Event represents a trace event recorded against a run.
type Event struct {
	EventID string          `json:"event_id"`
	RunID   string          `json:"run_id"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// InvocationStartedPayload is the payload for invocation_started events.
type InvocationStartedPayload struct {
	AgentID string      `json:"agent_id"`
	Trigger TriggerType `json:"trigger"`
}

// InvocationDonePayload is the payload for invocation_done events.
type InvocationDonePayload struct {
	ContentType string `json:"content_type,omitempty"`
}

// InvocationFailedPayload is the payload for invocation_failed events.
type InvocationFailedPayload struct {
	Message string `json:"message"`
}

// HandoffStartedPayload is the payload for handoff_started events.
type HandoffStartedPayload struct {
	SourceAgent string `json:"source_agent"`
	TargetAgent string `json:"target_agent,omitempty"`
	TargetName  string `json:"target_name,omitempty"`
}

// ReplyReceivedPayload is the payload for reply_received events.
type ReplyReceivedPayload struct {
	ReplyID     string `json:"reply_id"`
	ContentType string `json:"content_type,omitempty"`
}

// ReplyDroppedPayload is the payload for reply_dropped events.
type ReplyDroppedPayload struct {
	ReplyID string `json:"reply_id"`
}
