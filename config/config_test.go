package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agentd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAgents(t *testing.T) {
	path := writeManifest(t, `
agents:
  - id: agent-a
    name: Agent A
    description: First agent
    filename: agents/a.go
  - id: agent-b
    name: Agent B
`)
	agents, err := LoadAgents(path)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "agent-a", agents[0].ID)
	assert.Equal(t, "Agent A", agents[0].Name)
	assert.Equal(t, "First agent", agents[0].Description)
}

func TestLoadAgentsDuplicateID(t *testing.T) {
	path := writeManifest(t, `
agents:
  - id: agent-a
    name: Agent A
  - id: agent-a
    name: Other
`)
	_, err := LoadAgents(path)
	assert.ErrorContains(t, err, "duplicate agent id")
}

func TestLoadAgentsReservedID(t *testing.T) {
	path := writeManifest(t, `
agents:
  - id: _sneaky
    name: Sneaky
`)
	_, err := LoadAgents(path)
	assert.ErrorContains(t, err, "reserved")
}

func TestLoadAgentsMissingFile(t *testing.T) {
	_, err := LoadAgents(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, 3500, cfg.Port)
	assert.NotZero(t, cfg.ReplyTimeout)
	assert.NotZero(t, cfg.AgentTimeout)
}
