// Package scope carries the per-invocation context bundle: tracing span,
// identifiers and SDK version. The bundle is created once by the router,
// carried on the request context for the duration of the invocation
// (including nested hand-offs) and never mutated after creation. The
// invocation logger travels on the same context via clue's log package.
package scope

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/trace"
)

// ErrNoScope is returned when a lookup happens outside any active
// invocation. There is no silent default.
var ErrNoScope = errors.New("no active invocation scope")

// Scope is the immutable per-invocation bundle.
type Scope struct {
	Span         trace.Span
	Tracer       trace.Tracer
	RunID        string
	ProjectID    string
	DeploymentID string
	OrgID        string
	AgentID      string
	SDKVersion   string
}

type ctxKey struct{}

// With returns a context carrying the scope.
func With(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the active scope or ErrNoScope.
func FromContext(ctx context.Context) (*Scope, error) {
	s, ok := ctx.Value(ctxKey{}).(*Scope)
	if !ok || s == nil {
		return nil, ErrNoScope
	}
	return s, nil
}

// Child derives the scope for a nested hand-off: a new span and target
// agent id, parent identifiers preserved. The parent scope is left
// untouched.
func (s *Scope) Child(span trace.Span, agentID string) *Scope {
	child := *s
	child.Span = span
	child.AgentID = agentID
	return &child
}
