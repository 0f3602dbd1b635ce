// Package resolver maps agent references to invocable handles, choosing
// the cheapest viable transport: a loopback HTTP call for agents hosted
// in this process, or a control-plane call with a registry-mediated wait
// for everything else. Both invoker kinds expose the same interface so
// the hand-off path stays transport-agnostic.
package resolver

import (
	"context"
	"net/http"
	"time"

	"github.com/agentd-io/agentd/controlplane"
	"github.com/agentd-io/agentd/domain"
	"github.com/agentd-io/agentd/registry"
	"github.com/agentd-io/agentd/scope"
)

// Invoker is an invocable agent handle. Run executes the invocation and
// returns the canonical response.
type Invoker interface {
	Run(ctx context.Context, args *domain.InvocationArguments) (*domain.RemoteAgentResponse, error)
}

// Resolver resolves agent references against the static local manifest
// first, then against the control plane.
type Resolver struct {
	byID         map[string]domain.AgentConfig
	byName       map[string]domain.AgentConfig
	cp           *controlplane.Client
	localPort    int
	reg          *registry.Registry
	replyTimeout time.Duration
	httpClient   *http.Client
}

// New creates a resolver over the static local agent set. cp may be nil
// when no control plane is configured; remote references then fail with a
// not-found error.
func New(agents []domain.AgentConfig, cp *controlplane.Client, localPort int, reg *registry.Registry, replyTimeout time.Duration) *Resolver {
	r := &Resolver{
		byID:         make(map[string]domain.AgentConfig, len(agents)),
		byName:       make(map[string]domain.AgentConfig, len(agents)),
		cp:           cp,
		localPort:    localPort,
		reg:          reg,
		replyTimeout: replyTimeout,
		httpClient:   &http.Client{Timeout: 5 * time.Minute},
	}
	for _, a := range agents {
		r.byID[a.ID] = a
		r.byName[a.Name] = a
	}
	return r
}

func (r *Resolver) findLocal(ref domain.AgentRef) (domain.AgentConfig, bool) {
	if ref.ID != "" {
		a, ok := r.byID[ref.ID]
		return a, ok
	}
	a, ok := r.byName[ref.Name]
	return a, ok
}

// GetAgent resolves ref to an invoker. A local manifest match wins over
// the control plane. The loop check against the currently executing agent
// runs before any network call.
func (r *Resolver) GetAgent(ctx context.Context, ref domain.AgentRef) (Invoker, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if local, ok := r.findLocal(ref); ok {
		if sc, err := scope.FromContext(ctx); err == nil && sc.AgentID == local.ID {
			return nil, &domain.LoopError{AgentID: local.ID}
		}
		return &localInvoker{
			agent:      local,
			port:       r.localPort,
			httpClient: r.httpClient,
		}, nil
	}
	if r.cp == nil {
		return nil, &domain.NotFoundError{ID: ref.ID, Name: ref.Name}
	}
	resolved, err := r.cp.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &remoteInvoker{
		agent:        *resolved,
		cp:           r.cp,
		reg:          r.reg,
		replyTimeout: r.replyTimeout,
	}, nil
}
