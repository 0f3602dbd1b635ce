// Package registry correlates asynchronous remote replies with their
// originating invocations. A remote invocation registers a pending entry
// under a process-unique reply id and suspends; the out-of-band reply
// delivery resolves it. The pending map is the only cross-invocation
// shared mutable state in the host.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentd-io/agentd/domain"
)

// Registry is the process-wide map from reply id to pending reply.
type Registry struct {
	mu      sync.Mutex
	pending map[string]chan *domain.Payload
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{pending: make(map[string]chan *domain.Payload)}
}

// Pending is a registered wait handle for one reply id.
type Pending struct {
	id string
	ch chan *domain.Payload
	r  *Registry
}

// Register inserts a pending entry under id. The caller must guarantee id
// uniqueness; a collision is a programming error.
func (r *Registry) Register(id string) *Pending {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pending[id]; exists {
		panic(fmt.Sprintf("registry: duplicate reply id %s", id))
	}
	ch := make(chan *domain.Payload, 1)
	r.pending[id] = ch
	return &Pending{id: id, ch: ch, r: r}
}

// Received resolves the pending entry for id with the delivered payload
// and removes it. Unknown or already-resolved ids are silently dropped so
// duplicate or late deliveries are tolerated; the return value reports
// whether the delivery was consumed.
func (r *Registry) Received(id string, payload *domain.Payload) bool {
	r.mu.Lock()
	ch, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	ch <- payload
	return true
}

// Cancel removes the pending entry for id without resolving it. It is a
// no-op if the entry was already resolved.
func (r *Registry) Cancel(id string) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

// Len returns the number of outstanding pending replies.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Wait suspends until the reply arrives, the timeout elapses or ctx is
// cancelled. On timeout or cancellation the entry is removed so a later
// delivery is dropped instead of leaking.
func (p *Pending) Wait(ctx context.Context, timeout time.Duration) (*domain.Payload, error) {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case payload := <-p.ch:
		return payload, nil
	case <-timer:
		p.r.Cancel(p.id)
		// A delivery may have raced the timeout.
		select {
		case payload := <-p.ch:
			return payload, nil
		default:
		}
		return nil, fmt.Errorf("timed out after %s waiting for reply %s", timeout, p.id)
	case <-ctx.Done():
		p.r.Cancel(p.id)
		select {
		case payload := <-p.ch:
			return payload, nil
		default:
		}
		return nil, ctx.Err()
	}
}
