// Package config loads application configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration for the convocore server.
type Config struct {
	Env        string `envconfig:"APP_ENV" default:"development"`
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`
	AgentID    string `envconfig:"AGENT_ID" default:"triage"`

	// LocalToolsURL is the base URL of the banking tools backend.
	LocalToolsURL string `envconfig:"LOCAL_TOOLS_URL" default:"http://localhost:9000"`

	// WorkflowPath points at a YAML workflow definition; empty selects the
	// built-in triage workflow.
	WorkflowPath string `envconfig:"WORKFLOW_PATH"`

	// RedisAddr enables the Redis memory store when non-empty.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// ModelProvider selects the reasoning engine: anthropic, openai or none.
	ModelProvider string `envconfig:"MODEL_PROVIDER" default:"none"`
	ModelName     string `envconfig:"MODEL_NAME"`
}

// Load reads configuration from the environment. A missing .env file is not
// an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR cannot be empty")
	}
	if c.AgentID == "" {
		return fmt.Errorf("AGENT_ID cannot be empty")
	}
	if c.LocalToolsURL == "" {
		return fmt.Errorf("LOCAL_TOOLS_URL cannot be empty")
	}
	switch c.ModelProvider {
	case "anthropic", "openai", "none":
	default:
		return fmt.Errorf("MODEL_PROVIDER must be one of anthropic, openai, none")
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool { return c.Env == "development" }
