// Package config loads and validates YAML configuration with environment
// variable expansion.
package config

import (
	"fmt"
	"os"
)

// ModelProvider identifies the model provider type.
type ModelProvider string

const (
	ModelProviderOpenAI    ModelProvider = "openai"
	ModelProviderAnthropic ModelProvider = "anthropic"
)

// Config is the root configuration document.
type Config struct {
	Models        map[string]*ModelConfig      `yaml:"models"`
	Agents        map[string]*AgentConfig      `yaml:"agents"`
	ToolSources   map[string]*ToolSourceConfig `yaml:"tool_sources"`
	Database      *DatabaseConfig              `yaml:"database,omitempty"`
	Server        *ServerConfig                `yaml:"server,omitempty"`
	Observability *ObservabilityConfig         `yaml:"observability,omitempty"`
	Logging       *LoggingConfig               `yaml:"logging,omitempty"`
}

// ModelConfig configures a model provider client.
type ModelConfig struct {
	Provider    ModelProvider `yaml:"provider"`
	Model       string        `yaml:"model,omitempty"`
	APIKey      string        `yaml:"api_key,omitempty"`
	BaseURL     string        `yaml:"base_url,omitempty"`
	Temperature *float64      `yaml:"temperature,omitempty"`
	MaxTokens   int           `yaml:"max_tokens,omitempty"`
	MaxRetries  int           `yaml:"max_retries,omitempty"`
	Timeout     int           `yaml:"timeout,omitempty"`
}

// AgentConfig configures a single agent.
type AgentConfig struct {
	Name         string   `yaml:"name,omitempty"`
	Description  string   `yaml:"description,omitempty"`
	Model        string   `yaml:"model"`
	SystemPrompt string   `yaml:"system_prompt,omitempty"`
	ToolSources  []string `yaml:"tool_sources,omitempty"`

	// Handoffs lists the agents this agent may hand control to, with an
	// optional default message per target.
	Handoffs []*HandoffConfig `yaml:"handoffs,omitempty"`

	// MaxToolIterations bounds model/tool round trips per turn.
	MaxToolIterations int `yaml:"max_tool_iterations,omitempty"`

	// Memory selects the context store backing (buffer, token_window, sql).
	Memory *MemoryConfig `yaml:"memory,omitempty"`
}

// HandoffConfig declares a handoff target for an agent.
type HandoffConfig struct {
	Target  string `yaml:"target"`
	Message string `yaml:"message,omitempty"`
}

// MemoryConfig selects and tunes the context store.
type MemoryConfig struct {
	Type      string `yaml:"type,omitempty"`
	MaxTokens int    `yaml:"max_tokens,omitempty"`
	Model     string `yaml:"model,omitempty"`
}

// ToolSourceConfig configures a capability source.
type ToolSourceConfig struct {
	// Type is one of: local, mcp.
	Type string `yaml:"type"`

	// Command and Args launch a stdio MCP server (type: mcp).
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
	Env     []string `yaml:"env,omitempty"`

	// Options holds source-specific settings, decoded by the source.
	Options map[string]interface{} `yaml:"options,omitempty"`
}

// DatabaseConfig configures postgres persistence.
type DatabaseConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Name     string `yaml:"name,omitempty"`
	SSLMode  string `yaml:"ssl_mode,omitempty"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// ObservabilityConfig configures tracing and metrics.
type ObservabilityConfig struct {
	Enabled      bool    `yaml:"enabled,omitempty"`
	ServiceName  string  `yaml:"service_name,omitempty"`
	OTLPEndpoint string  `yaml:"otlp_endpoint,omitempty"`
	SampleRate   float64 `yaml:"sample_rate,omitempty"`
	Stdout       bool    `yaml:"stdout,omitempty"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// SetDefaults applies default values across the document.
func (c *Config) SetDefaults() {
	for name, a := range c.Agents {
		if a == nil {
			continue
		}
		if a.Name == "" {
			a.Name = name
		}
		if a.MaxToolIterations == 0 {
			a.MaxToolIterations = 10
		}
		if a.Memory == nil {
			a.Memory = &MemoryConfig{Type: "buffer"}
		}
		if a.Memory.Type == "" {
			a.Memory.Type = "buffer"
		}
	}
	for _, m := range c.Models {
		if m != nil {
			m.SetDefaults()
		}
	}
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database != nil {
		c.Database.SetDefaults()
	}
	if c.Observability == nil {
		c.Observability = &ObservabilityConfig{}
	}
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = "agentfusion"
	}
	if c.Observability.SampleRate == 0 {
		c.Observability.SampleRate = 1.0
	}
	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// SetDefaults applies model defaults, pulling API keys from the environment
// when unset.
func (m *ModelConfig) SetDefaults() {
	if m.Provider == "" {
		m.Provider = ModelProviderOpenAI
	}
	if m.Model == "" {
		switch m.Provider {
		case ModelProviderOpenAI:
			m.Model = "gpt-4o"
		case ModelProviderAnthropic:
			m.Model = "claude-sonnet-4-20250514"
		}
	}
	if m.APIKey == "" {
		switch m.Provider {
		case ModelProviderOpenAI:
			m.APIKey = os.Getenv("OPENAI_API_KEY")
		case ModelProviderAnthropic:
			m.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if m.MaxTokens == 0 {
		m.MaxTokens = 4096
	}
	if m.Temperature == nil {
		t := 0.7
		m.Temperature = &t
	}
	if m.Timeout == 0 {
		m.Timeout = 120
	}
}

// SetDefaults applies database defaults.
func (d *DatabaseConfig) SetDefaults() {
	if d.Host == "" {
		d.Host = "localhost"
	}
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
}

// DSN renders the postgres connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Validate checks cross-references and required fields.
func (c *Config) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent must be configured")
	}
	for name, m := range c.Models {
		if m == nil {
			return fmt.Errorf("model %q: empty config", name)
		}
		if err := m.Validate(); err != nil {
			return fmt.Errorf("model %q: %w", name, err)
		}
	}
	for name, a := range c.Agents {
		if a == nil {
			return fmt.Errorf("agent %q: empty config", name)
		}
		if a.Model == "" {
			return fmt.Errorf("agent %q: model is required", name)
		}
		if _, ok := c.Models[a.Model]; !ok {
			return fmt.Errorf("agent %q: unknown model %q", name, a.Model)
		}
		for _, src := range a.ToolSources {
			if _, ok := c.ToolSources[src]; !ok {
				return fmt.Errorf("agent %q: unknown tool source %q", name, src)
			}
		}
		for _, h := range a.Handoffs {
			if h.Target == "" {
				return fmt.Errorf("agent %q: handoff target is required", name)
			}
			if h.Target == name {
				return fmt.Errorf("agent %q: handoff target cannot be the agent itself", name)
			}
			if _, ok := c.Agents[h.Target]; !ok {
				return fmt.Errorf("agent %q: unknown handoff target %q", name, h.Target)
			}
		}
		if a.MaxToolIterations < 0 {
			return fmt.Errorf("agent %q: max_tool_iterations must be positive", name)
		}
	}
	for name, s := range c.ToolSources {
		if s == nil {
			return fmt.Errorf("tool source %q: empty config", name)
		}
		switch s.Type {
		case "local":
		case "mcp":
			if s.Command == "" {
				return fmt.Errorf("tool source %q: command is required for mcp sources", name)
			}
		default:
			return fmt.Errorf("tool source %q: invalid type %q (valid: local, mcp)", name, s.Type)
		}
	}
	return nil
}

// Validate checks the model configuration.
func (m *ModelConfig) Validate() error {
	switch m.Provider {
	case ModelProviderOpenAI, ModelProviderAnthropic:
	default:
		return fmt.Errorf("invalid provider %q (valid: openai, anthropic)", m.Provider)
	}
	if m.APIKey == "" {
		return fmt.Errorf("api_key is required for provider %q", m.Provider)
	}
	if m.Temperature != nil && (*m.Temperature < 0 || *m.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}
