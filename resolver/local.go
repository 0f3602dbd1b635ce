package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/agentd-io/agentd/domain"
	"github.com/agentd-io/agentd/scope"
)

// localInvoker calls a co-located agent over loopback HTTP, keyed by the
// target agent's id.
type localInvoker struct {
	agent      domain.AgentConfig
	port       int
	httpClient *http.Client
}

// Run implements Invoker.
func (inv *localInvoker) Run(ctx context.Context, args *domain.InvocationArguments) (*domain.RemoteAgentResponse, error) {
	contentType := args.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	env := domain.EncodePayload(contentType, args.Data, args.Metadata)

	req := domain.InvocationRequest{
		Trigger:     domain.TriggerAgent,
		ContentType: env.ContentType,
		Payload:     env.Payload,
		Base64:      env.Base64,
		Metadata:    args.Metadata,
	}
	if sc, err := scope.FromContext(ctx); err == nil {
		req.RunID = sc.RunID
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("http://127.0.0.1:%d/%s", inv.port, inv.agent.ID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := inv.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke agent %s: %w", inv.agent.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("agent %s returned status %d: %s", inv.agent.ID, resp.StatusCode, string(respBody))
	}

	var payload domain.Payload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode agent response: %w", err)
	}
	return &domain.RemoteAgentResponse{Data: &payload, Metadata: payload.Metadata}, nil
}
