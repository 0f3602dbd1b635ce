// Package config provides configuration for the agent host.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agentd-io/agentd/domain"
)

// Config holds the host configuration.
type Config struct {
	// Server settings
	Port int

	// Control plane
	ControlPlaneURL    string
	ControlPlaneAPIKey string

	// Database
	DatabaseURL string

	// Agent manifest
	AgentsFile string

	// Deployment identity
	ProjectID    string
	DeploymentID string
	OrgID        string

	// Timeouts
	AgentTimeout time.Duration
	ReplyTimeout time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:               getEnvInt("PORT", 3500),
		ControlPlaneURL:    getEnv("CONTROL_PLANE_URL", ""),
		ControlPlaneAPIKey: getEnv("CONTROL_PLANE_API_KEY", ""),
		DatabaseURL:        getEnv("DATABASE_URL", "file:agentd.db?cache=shared&mode=rwc"),
		AgentsFile:         getEnv("AGENTS_FILE", "agentd.yaml"),
		ProjectID:          getEnv("PROJECT_ID", ""),
		DeploymentID:       getEnv("DEPLOYMENT_ID", ""),
		OrgID:              getEnv("ORG_ID", ""),
		AgentTimeout:       time.Duration(getEnvInt("AGENT_TIMEOUT_MS", 300000)) * time.Millisecond,
		ReplyTimeout:       time.Duration(getEnvInt("REPLY_TIMEOUT_MS", 300000)) * time.Millisecond,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

// Manifest is the on-disk agent manifest.
type Manifest struct {
	Agents []domain.AgentConfig `yaml:"agents"`
}

// LoadAgents parses the YAML agent manifest. The agent set is static:
// loaded once at startup and read-only thereafter.
func LoadAgents(path string) ([]domain.AgentConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agents file: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to parse agents file: %w", err)
	}
	seen := make(map[string]bool, len(m.Agents))
	for _, a := range m.Agents {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("invalid agent %q: %w", a.ID, err)
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("duplicate agent id %q", a.ID)
		}
		seen[a.ID] = true
	}
	return m.Agents, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
