package domain

import "strings"

// AgentConfig describes a locally hosted agent. The set of local agents is
// loaded once at startup and read-only thereafter.
type AgentConfig struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Filename    string `json:"filename,omitempty" yaml:"filename,omitempty"`
}

// Validate checks the static agent configuration. Agent ids starting with
// an underscore collide with the reserved internal route prefix.
func (a AgentConfig) Validate() error {
	if a.ID == "" {
		return ErrInvalidAgentRef
	}
	if strings.HasPrefix(a.ID, "_") {
		return ErrReservedAgentID
	}
	if a.Name == "" {
		return ErrInvalidAgentRef
	}
	return nil
}

// AgentRef references an agent either by id or by name (optionally scoped
// to a project). Exactly one of ID or Name must be set.
type AgentRef struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
}

// Validate checks the reference shape before any resolution is attempted.
func (r AgentRef) Validate() error {
	if r.ID == "" && r.Name == "" {
		return ErrInvalidAgentRef
	}
	return nil
}

// RemoteAgentResponse is the canonical result of any agent invocation,
// local or remote.
type RemoteAgentResponse struct {
	Data     *Payload       `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
