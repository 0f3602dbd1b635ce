// Package router dispatches invocations to agent handlers. Dispatch owns
// the per-invocation lifecycle: span, scope, run log, handler call, result
// normalization and the hand-off tail call.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"goa.design/clue/log"

	"github.com/agentd-io/agentd/data"
	"github.com/agentd-io/agentd/domain"
	"github.com/agentd-io/agentd/events"
	"github.com/agentd-io/agentd/policy"
	"github.com/agentd-io/agentd/resolver"
	"github.com/agentd-io/agentd/response"
	"github.com/agentd-io/agentd/scope"
	"github.com/agentd-io/agentd/store"
	"github.com/agentd-io/agentd/telemetry"
)

// Request is the decoded invocation as seen by a handler. The payload is
// exposed through a lazy data container; handlers pick the view they need.
type Request struct {
	Trigger     domain.TriggerType
	ContentType string
	Metadata    map[string]any
	RunID       string

	data *data.Data
}

// Data returns the request payload container.
func (r *Request) Data() *data.Data { return r.data }

// HandlerFunc is an agent entry point.
type HandlerFunc func(ctx context.Context, req *Request) (*response.Result, error)

// Identity is the deployment identity stamped into every invocation scope.
type Identity struct {
	ProjectID    string
	DeploymentID string
	OrgID        string
	SDKVersion   string
}

// Router dispatches invocations to registered handlers.
type Router struct {
	tracer   trace.Tracer
	resolver *resolver.Resolver
	store    store.Store
	hub      *events.Hub
	policy   *policy.Engine
	identity Identity

	// Registration happens at startup before serving; no locking.
	agents   map[string]domain.AgentConfig
	handlers map[string]HandlerFunc
}

// New creates a router. store and hub may be nil in tests; run logging is
// then skipped.
func New(res *resolver.Resolver, st store.Store, hub *events.Hub, pol *policy.Engine, identity Identity) *Router {
	return &Router{
		tracer:   telemetry.Tracer(),
		resolver: res,
		store:    st,
		hub:      hub,
		policy:   pol,
		identity: identity,
		agents:   make(map[string]domain.AgentConfig),
		handlers: make(map[string]HandlerFunc),
	}
}

// Register binds a handler to a local agent.
func (r *Router) Register(agent domain.AgentConfig, handler HandlerFunc) error {
	if err := agent.Validate(); err != nil {
		return err
	}
	if _, ok := r.handlers[agent.ID]; ok {
		return fmt.Errorf("agent %q already registered", agent.ID)
	}
	r.agents[agent.ID] = agent
	r.handlers[agent.ID] = handler
	return nil
}

// Lookup returns the agent and handler for an id.
func (r *Router) Lookup(agentID string) (domain.AgentConfig, HandlerFunc, bool) {
	agent, ok := r.agents[agentID]
	if !ok {
		return domain.AgentConfig{}, nil, false
	}
	return agent, r.handlers[agentID], true
}

// Dispatch runs one invocation end to end and returns the canonical
// response envelope. A hand-off result is a tail call: the target's
// response becomes this invocation's response, verbatim.
func (r *Router) Dispatch(ctx context.Context, agent domain.AgentConfig, inv *domain.InvocationRequest, handler HandlerFunc) (*domain.RemoteAgentResponse, error) {
	runID := inv.RunID
	created := false
	if runID == "" {
		runID = "run_" + uuid.New().String()[:8]
		created = true
	}

	ctx, span := r.tracer.Start(ctx, "agent.run "+agent.Name)
	defer span.End()
	span.SetAttributes(
		attribute.String("agent.id", agent.ID),
		attribute.String("run.id", runID),
		attribute.String("trigger", string(inv.Trigger)),
	)

	ctx = scope.With(ctx, &scope.Scope{
		Span:         span,
		Tracer:       r.tracer,
		RunID:        runID,
		ProjectID:    r.identity.ProjectID,
		DeploymentID: r.identity.DeploymentID,
		OrgID:        r.identity.OrgID,
		AgentID:      agent.ID,
		SDKVersion:   r.identity.SDKVersion,
	})
	ctx = log.With(ctx, log.KV{K: "run_id", V: runID}, log.KV{K: "agent_id", V: agent.ID})

	if created {
		if err := r.createRun(ctx, runID, agent.ID, inv.Trigger); err != nil {
			log.Error(ctx, err, log.KV{K: "msg", V: "failed to record run"})
		}
	}
	r.recordEvent(ctx, runID, domain.EventTypeInvocationStarted, domain.InvocationStartedPayload{
		AgentID: agent.ID,
		Trigger: inv.Trigger,
	})

	req, err := r.decode(inv)
	if err != nil {
		return nil, r.fail(ctx, span, runID, created, err)
	}

	res, err := handler(ctx, req)
	if err == nil && res == nil {
		err = domain.ErrHandlerNoResult
	}
	if err != nil {
		return nil, r.fail(ctx, span, runID, created, err)
	}

	status := domain.RunStatusDone
	var resp *domain.RemoteAgentResponse
	switch res.Kind {
	case domain.ResultText:
		resp = &domain.RemoteAgentResponse{
			Data:     domain.EncodePayload("text/plain", []byte(res.Text), nil),
			Metadata: res.Metadata,
		}
	case domain.ResultData:
		b, berr := res.Data.Binary(ctx)
		if berr != nil {
			return nil, r.fail(ctx, span, runID, created, berr)
		}
		resp = &domain.RemoteAgentResponse{
			Data:     domain.EncodePayload(res.Data.ContentType(), b, nil),
			Metadata: res.Metadata,
		}
	case domain.ResultHandoff:
		resp, err = r.handoff(ctx, agent, req, res.Handoff)
		if err != nil {
			return nil, r.fail(ctx, span, runID, created, err)
		}
		status = domain.RunStatusHandoff
	default:
		return nil, r.fail(ctx, span, runID, created, fmt.Errorf("unknown result kind %d", res.Kind))
	}

	contentType := ""
	if resp.Data != nil {
		contentType = resp.Data.ContentType
	}
	r.recordEvent(ctx, runID, domain.EventTypeInvocationDone, domain.InvocationDonePayload{ContentType: contentType})
	if created {
		if err := r.completeRun(ctx, runID, status, nil); err != nil {
			log.Error(ctx, err, log.KV{K: "msg", V: "failed to record run completion"})
		}
	}
	telemetry.OK(span)
	return resp, nil
}

// handoff delegates the rest of the invocation to another agent. The
// policy check runs before any resolution I/O; nil arguments forward the
// original request payload unchanged.
func (r *Router) handoff(ctx context.Context, source domain.AgentConfig, req *Request, spec *domain.HandoffSpec) (*domain.RemoteAgentResponse, error) {
	decision, err := r.policy.Evaluate(ctx, policy.Input{
		SourceAgent: source.ID,
		TargetAgent: spec.Agent.ID,
		TargetName:  spec.Agent.Name,
		Trigger:     string(req.Trigger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate hand-off policy: %w", err)
	}
	target := spec.Agent.ID
	if target == "" {
		target = spec.Agent.Name
	}
	if decision == policy.DecisionBlock {
		return nil, &domain.PolicyError{SourceAgent: source.ID, TargetAgent: target, Reason: "blocked by hand-off policy"}
	}

	sc, err := scope.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	r.recordEvent(ctx, sc.RunID, domain.EventTypeHandoffStarted, domain.HandoffStartedPayload{
		SourceAgent: source.ID,
		TargetAgent: spec.Agent.ID,
		TargetName:  spec.Agent.Name,
	})

	// Loop detection inside GetAgent reads the source agent's scope, so
	// resolution happens before the child scope is derived.
	inv, err := r.resolver.GetAgent(ctx, spec.Agent)
	if err != nil {
		return nil, err
	}

	args := spec.Args
	if args == nil {
		b, berr := req.Data().Binary(ctx)
		if berr != nil {
			return nil, berr
		}
		args = &domain.InvocationArguments{
			Data:        b,
			ContentType: req.ContentType,
			Metadata:    req.Metadata,
		}
	}

	hctx, hspan := sc.Tracer.Start(ctx, "agent.handoff "+target)
	defer hspan.End()
	hctx = scope.With(hctx, sc.Child(hspan, target))

	resp, err := inv.Run(hctx, args)
	if err != nil {
		telemetry.Fail(hspan, err)
		return nil, err
	}
	telemetry.OK(hspan)
	return resp, nil
}

func (r *Router) decode(inv *domain.InvocationRequest) (*Request, error) {
	b, err := inv.Bytes()
	if err != nil {
		return nil, err
	}
	contentType := inv.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Request{
		Trigger:     inv.Trigger,
		ContentType: contentType,
		Metadata:    inv.Metadata,
		RunID:       inv.RunID,
		data:        data.NewBytes(contentType, b),
	}, nil
}

func (r *Router) fail(ctx context.Context, span trace.Span, runID string, created bool, err error) error {
	telemetry.Fail(span, err)
	log.Error(ctx, err, log.KV{K: "msg", V: "invocation failed"})
	r.recordEvent(ctx, runID, domain.EventTypeInvocationFailed, domain.InvocationFailedPayload{Message: err.Error()})
	if created {
		errData, _ := json.Marshal(domain.InvocationFailedPayload{Message: err.Error()})
		if serr := r.completeRun(ctx, runID, domain.RunStatusFailed, errData); serr != nil {
			log.Error(ctx, serr, log.KV{K: "msg", V: "failed to record run completion"})
		}
	}
	return err
}

func (r *Router) createRun(ctx context.Context, runID, agentID string, trigger domain.TriggerType) error {
	if r.store == nil {
		return nil
	}
	return r.store.CreateRun(ctx, &domain.Run{
		RunID:     runID,
		AgentID:   agentID,
		Trigger:   trigger,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	})
}

func (r *Router) completeRun(ctx context.Context, runID string, status domain.RunStatus, errData []byte) error {
	if r.store == nil {
		return nil
	}
	return r.store.UpdateRunCompleted(ctx, runID, status, errData)
}

// recordEvent writes one run event to the store and the live feed. Run
// logging is observability data; failures are logged, never raised.
func (r *Router) recordEvent(ctx context.Context, runID string, typ domain.EventType, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "failed to marshal event payload"})
		return
	}
	evt := &domain.Event{
		EventID: "evt_" + uuid.New().String()[:8],
		RunID:   runID,
		Ts:      time.Now().UnixMilli(),
		Type:    typ,
		Payload: b,
	}
	if r.store != nil {
		if err := r.store.CreateEvent(ctx, evt); err != nil {
			log.Error(ctx, err, log.KV{K: "msg", V: "failed to record event"})
		}
	}
	if r.hub != nil {
		r.hub.Publish(evt)
	}
}
