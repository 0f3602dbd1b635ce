// Package response normalizes handler return values into the canonical
// (data container, metadata) response envelope. Constructors cover the
// supported content types; Stream implements the auto-classification and
// transform pipeline for streamed values; Handoff builds the hand-off
// marker consumed by the router.
package response

import (
	"encoding/json"
	"fmt"

	"github.com/agentd-io/agentd/data"
	"github.com/agentd-io/agentd/domain"
)

// Result is a handler's declared intent, tagged by kind. The router
// pattern-matches on Kind to finish the invocation.
type Result struct {
	Kind     domain.ResultKind
	Text     string
	Data     *data.Data
	Metadata map[string]any
	Handoff  *domain.HandoffSpec
}

func validateMetadata(metadata []map[string]any) (map[string]any, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	md := metadata[0]
	if md == nil {
		return nil, nil
	}
	if _, err := json.Marshal(md); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMetadata, err)
	}
	return md, nil
}

// Text builds a plain text response.
func Text(s string, metadata ...map[string]any) (*Result, error) {
	md, err := validateMetadata(metadata)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: domain.ResultText, Text: s, Metadata: md}, nil
}

// JSON builds an application/json response from any marshalable value.
func JSON(v any, metadata ...map[string]any) (*Result, error) {
	md, err := validateMetadata(metadata)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return &Result{
		Kind:     domain.ResultData,
		Data:     data.NewBytes("application/json", b),
		Metadata: md,
	}, nil
}

// Raw builds a response with an explicit content type.
func Raw(contentType string, b []byte, metadata ...map[string]any) (*Result, error) {
	md, err := validateMetadata(metadata)
	if err != nil {
		return nil, err
	}
	return &Result{
		Kind:     domain.ResultData,
		Data:     data.NewBytes(contentType, b),
		Metadata: md,
	}, nil
}

// Binary builds an application/octet-stream response.
func Binary(b []byte, metadata ...map[string]any) (*Result, error) {
	return Raw("application/octet-stream", b, metadata...)
}

// HTML builds a text/html response.
func HTML(s string, metadata ...map[string]any) (*Result, error) {
	return Raw("text/html", []byte(s), metadata...)
}

// Markdown builds a text/markdown response.
func Markdown(s string, metadata ...map[string]any) (*Result, error) {
	return Raw("text/markdown", []byte(s), metadata...)
}

// PDF builds an application/pdf response.
func PDF(b []byte, metadata ...map[string]any) (*Result, error) {
	return Raw("application/pdf", b, metadata...)
}

// PNG builds an image/png response.
func PNG(b []byte, metadata ...map[string]any) (*Result, error) {
	return Raw("image/png", b, metadata...)
}

// JPEG builds an image/jpeg response.
func JPEG(b []byte, metadata ...map[string]any) (*Result, error) {
	return Raw("image/jpeg", b, metadata...)
}

// GIF builds an image/gif response.
func GIF(b []byte, metadata ...map[string]any) (*Result, error) {
	return Raw("image/gif", b, metadata...)
}

// WebP builds an image/webp response.
func WebP(b []byte, metadata ...map[string]any) (*Result, error) {
	return Raw("image/webp", b, metadata...)
}

// MP3 builds an audio/mpeg response.
func MP3(b []byte, metadata ...map[string]any) (*Result, error) {
	return Raw("audio/mpeg", b, metadata...)
}

// WAV builds an audio/wav response.
func WAV(b []byte, metadata ...map[string]any) (*Result, error) {
	return Raw("audio/wav", b, metadata...)
}

// OGG builds an audio/ogg response.
func OGG(b []byte, metadata ...map[string]any) (*Result, error) {
	return Raw("audio/ogg", b, metadata...)
}

// Empty builds a response with no payload.
func Empty(metadata ...map[string]any) (*Result, error) {
	return Raw("text/plain", nil, metadata...)
}

// Handoff builds the hand-off marker delegating the rest of the
// invocation to another agent. It validates shapes only and performs no
// I/O; the router drives resolution and the actual call.
func Handoff(ref domain.AgentRef, args ...*domain.InvocationArguments) (*Result, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	spec := &domain.HandoffSpec{Agent: ref}
	if len(args) > 0 && args[0] != nil {
		if _, err := json.Marshal(args[0].Metadata); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMetadata, err)
		}
		spec.Args = args[0]
	}
	return &Result{Kind: domain.ResultHandoff, Handoff: spec}, nil
}
