// Package store defines the run log storage interface and its SQLite
// implementation. The run log is observability data: storage failures are
// logged by callers and never fail an invocation.
package store

import (
	"context"

	"github.com/agentd-io/agentd/domain"
)

// Store defines the interface for run log persistence.
type Store interface {
	// Run operations
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
	UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus, errData []byte) error

	// Event operations
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, runID string, afterTs int64, limit int) ([]domain.Event, error)

	// Lifecycle
	Close() error
}
