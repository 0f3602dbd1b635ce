// Package domain defines the core domain models for the agent host.
package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// TriggerType identifies what caused an invocation.
type TriggerType string

const (
	TriggerWebhook  TriggerType = "webhook"
	TriggerManual   TriggerType = "manual"
	TriggerSchedule TriggerType = "schedule"
	TriggerQueue    TriggerType = "queue"
	TriggerSMS      TriggerType = "sms"
	TriggerEmail    TriggerType = "email"
	TriggerAgent    TriggerType = "agent"
)

// InvocationRequest is the inbound request delivered to an agent. It is
// immutable once received; the router owns it for the lifetime of one
// invocation.
type InvocationRequest struct {
	Trigger     TriggerType    `json:"trigger"`
	ContentType string         `json:"contentType"`
	Payload     string         `json:"payload,omitempty"`
	Base64      bool           `json:"base64,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	RunID       string         `json:"runId,omitempty"`
}

// Bytes decodes the request payload into raw bytes.
func (r *InvocationRequest) Bytes() ([]byte, error) {
	if !r.Base64 {
		return []byte(r.Payload), nil
	}
	b, err := base64.StdEncoding.DecodeString(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return b, nil
}

// InvocationArguments carries the optional payload of a hand-off. A nil
// value means "forward the current request unchanged".
type InvocationArguments struct {
	Data        []byte         `json:"-"`
	ContentType string         `json:"contentType,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Payload is the wire envelope for payloads crossing the transport
// boundary. Binary and structured payloads are base64-encoded inside the
// JSON envelope; textual content types travel as UTF-8 text with
// base64=false. The encoding choice is consistent between a request and
// its corresponding response.
type Payload struct {
	ContentType string         `json:"contentType"`
	Payload     string         `json:"payload,omitempty"`
	Base64      bool           `json:"base64,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// EncodePayload builds the wire envelope for the given bytes, choosing the
// text encoding for textual content types and base64 otherwise.
func EncodePayload(contentType string, b []byte, metadata map[string]any) *Payload {
	p := &Payload{ContentType: contentType, Metadata: metadata}
	if IsTextual(contentType) {
		p.Payload = string(b)
		return p
	}
	p.Payload = base64.StdEncoding.EncodeToString(b)
	p.Base64 = true
	return p
}

// Bytes decodes the envelope payload into raw bytes.
func (p *Payload) Bytes() ([]byte, error) {
	if !p.Base64 {
		return []byte(p.Payload), nil
	}
	b, err := base64.StdEncoding.DecodeString(p.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return b, nil
}

// IsTextual reports whether a content type is treated as line-oriented
// text on the wire (text/* and JSON).
func IsTextual(contentType string) bool {
	return strings.HasPrefix(contentType, "text/") ||
		strings.HasPrefix(contentType, "application/json")
}
