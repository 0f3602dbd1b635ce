package resolver

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agentd-io/agentd/controlplane"
	"github.com/agentd-io/agentd/domain"
	"github.com/agentd-io/agentd/registry"
)

// remoteInvoker submits an invocation to the control plane and suspends
// on the callback registry until the reply is delivered out-of-band to
// this host's reply entrypoint.
type remoteInvoker struct {
	agent        controlplane.ResolvedAgent
	cp           *controlplane.Client
	reg          *registry.Registry
	replyTimeout time.Duration
}

// Run implements Invoker.
func (inv *remoteInvoker) Run(ctx context.Context, args *domain.InvocationArguments) (*domain.RemoteAgentResponse, error) {
	contentType := args.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	payload := domain.EncodePayload(contentType, args.Data, args.Metadata)

	replyID := uuid.New().String()
	ack, err := inv.cp.Invoke(ctx, inv.agent.ID, replyID, payload)
	if err != nil {
		return nil, err
	}
	if !ack.Success {
		return nil, &domain.RejectionError{Message: ack.Message}
	}

	pending := inv.reg.Register(replyID)
	reply, err := pending.Wait(ctx, inv.replyTimeout)
	if err != nil {
		return nil, err
	}
	return &domain.RemoteAgentResponse{Data: reply, Metadata: reply.Metadata}, nil
}
