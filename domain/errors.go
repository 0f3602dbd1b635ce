package domain

import (
	"errors"
	"fmt"
)

// Contract violations fail fast, before any I/O, and are never retried.
var (
	// ErrHandlerNoResult is returned when a handler returns neither a
	// result nor an error. This is a programming-contract violation,
	// distinct from errors originating inside the handler.
	ErrHandlerNoResult = errors.New("agent handler returned no result")

	// ErrInvalidMetadata is returned when supplied metadata is not a
	// plain JSON-serializable object.
	ErrInvalidMetadata = errors.New("metadata must be a JSON-serializable object")

	// ErrInvalidAgentRef is returned when an agent reference has neither
	// an id nor a name.
	ErrInvalidAgentRef = errors.New("agent reference requires an id or a name")

	// ErrReservedAgentID is returned when an agent id collides with the
	// reserved internal route prefix.
	ErrReservedAgentID = errors.New("agent ids starting with '_' are reserved")
)

// LoopError reports a hand-off that targets the currently executing agent.
// It is fatal and never retried.
type LoopError struct {
	AgentID string
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("hand-off loop detected: agent %s attempted to invoke itself", e.AgentID)
}

// NotFoundError reports a failed agent resolution. The message names the
// id or the name that was searched for, whichever the caller supplied.
type NotFoundError struct {
	ID   string
	Name string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("agent with id %s not found", e.ID)
	}
	return fmt.Sprintf("agent with name %q not found", e.Name)
}

// RejectionError reports that the control plane explicitly declined an
// invocation. The message comes from the control plane.
type RejectionError struct {
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return "control plane rejected the invocation"
	}
	return fmt.Sprintf("control plane rejected the invocation: %s", e.Message)
}

// PolicyError reports a hand-off blocked by the policy engine.
type PolicyError struct {
	SourceAgent string
	TargetAgent string
	Reason      string
}

func (e *PolicyError) Error() string {
	msg := fmt.Sprintf("hand-off from %s to %s blocked by policy", e.SourceAgent, e.TargetAgent)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}
