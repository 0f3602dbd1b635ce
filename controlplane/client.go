// Package controlplane provides the HTTP client for the remote control
// plane: resolving agent references that are not hosted locally and
// submitting asynchronous invocations whose replies arrive out-of-band.
package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agentd-io/agentd/domain"
)

// Client is the control-plane HTTP client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a control-plane client. Retry and backoff policy, if
// any, belongs to the supplied transport.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ResolvedAgent is the control plane's description of a remote agent.
type ResolvedAgent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ProjectID   string `json:"projectId,omitempty"`
	Description string `json:"description,omitempty"`
}

// InvokeAck is the control plane's synchronous acknowledgement of an
// asynchronous invocation.
type InvokeAck struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("control plane request failed: %w", err)
	}
	return resp, nil
}

// Resolve asks the control plane to resolve an agent reference. A
// 404-equivalent response maps to domain.NotFoundError naming whichever
// of id or name was searched for.
func (c *Client) Resolve(ctx context.Context, ref domain.AgentRef) (*ResolvedAgent, error) {
	resp, err := c.post(ctx, "/agents/resolve", ref)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &domain.NotFoundError{ID: ref.ID, Name: ref.Name}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("control plane returned status %d: %s", resp.StatusCode, string(body))
	}

	var resolved ResolvedAgent
	if err := json.NewDecoder(resp.Body).Decode(&resolved); err != nil {
		return nil, fmt.Errorf("failed to decode resolve response: %w", err)
	}
	return &resolved, nil
}

// Invoke submits an asynchronous invocation of agentID. The reply will be
// delivered later to this host's reply entrypoint under replyID; the
// returned ack only reports whether the control plane accepted the
// submission.
func (c *Client) Invoke(ctx context.Context, agentID, replyID string, payload *domain.Payload) (*InvokeAck, error) {
	path := fmt.Sprintf("/agents/%s/invoke/%s", agentID, replyID)
	resp, err := c.post(ctx, path, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("control plane returned status %d: %s", resp.StatusCode, string(body))
	}

	var ack InvokeAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("failed to decode invoke ack: %w", err)
	}
	return &ack, nil
}
