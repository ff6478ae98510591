// Package component assembles the runtime from configuration: model
// providers, tool sources, session persistence, and per-session agent
// engines.
package component

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/agentfusion/agentfusion/agent"
	"github.com/agentfusion/agentfusion/config"
	"github.com/agentfusion/agentfusion/llms"
	"github.com/agentfusion/agentfusion/memory"
	"github.com/agentfusion/agentfusion/session"
	"github.com/agentfusion/agentfusion/tools"
)

// Manager owns the shared components built from a config document. Engines
// are built per conversation on top of them.
type Manager struct {
	cfg      *config.Config
	models   *llms.Registry
	sources  map[string]tools.Source
	sessions session.Service
	sql      *session.SQLService
	logger   *slog.Logger
}

// NewManager builds providers, tool sources, and the session service from
// cfg. It fails on the first component that cannot be constructed.
func NewManager(cfg *config.Config) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	m := &Manager{
		cfg:     cfg,
		models:  llms.NewRegistry(),
		sources: make(map[string]tools.Source),
		logger:  slog.Default().With("component", "manager"),
	}

	for name, mc := range cfg.Models {
		if _, err := m.models.CreateFromConfig(name, mc); err != nil {
			m.Close()
			return nil, fmt.Errorf("model %q: %w", name, err)
		}
	}

	for name, sc := range cfg.ToolSources {
		src, err := buildSource(name, sc)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("tool source %q: %w", name, err)
		}
		m.sources[name] = src
	}

	if cfg.Database != nil {
		svc, err := session.Open(cfg.Database.DSN())
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("database: %w", err)
		}
		m.sql = svc
		m.sessions = svc
		m.logger.Info("session persistence enabled", "host", cfg.Database.Host)
	} else {
		m.sessions = session.NewInMemoryService()
	}

	return m, nil
}

func buildSource(name string, cfg *config.ToolSourceConfig) (tools.Source, error) {
	switch cfg.Type {
	case "local":
		return tools.NewLocalSourceFromConfig(name, cfg)
	case "mcp":
		return tools.NewMCPSource(name, cfg)
	default:
		return nil, fmt.Errorf("unsupported source type %q", cfg.Type)
	}
}

// Config returns the document the manager was built from.
func (m *Manager) Config() *config.Config { return m.cfg }

// Sessions returns the session service (postgres-backed when a database is
// configured, in-memory otherwise).
func (m *Manager) Sessions() session.Service { return m.sessions }

// SQL returns the postgres service, or nil when persistence is disabled.
func (m *Manager) SQL() *session.SQLService { return m.sql }

// AgentNames lists configured agents in stable order.
func (m *Manager) AgentNames() []string {
	names := make([]string, 0, len(m.cfg.Agents))
	for name := range m.cfg.Agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AgentConfig returns the configuration of one agent.
func (m *Manager) AgentConfig(name string) (*config.AgentConfig, error) {
	ac, ok := m.cfg.Agents[name]
	if !ok {
		return nil, fmt.Errorf("agent %q is not configured", name)
	}
	return ac, nil
}

// BuildEngine assembles an engine for the named agent on top of store.
// A nil store gets the agent's configured memory backing, detached from
// any session.
func (m *Manager) BuildEngine(name string, store memory.Store) (*agent.Engine, error) {
	ac, err := m.AgentConfig(name)
	if err != nil {
		return nil, err
	}

	provider, ok := m.models.Get(ac.Model)
	if !ok {
		return nil, fmt.Errorf("agent %q: model %q is not configured", name, ac.Model)
	}

	var sources []tools.Source
	for _, sn := range ac.ToolSources {
		src, ok := m.sources[sn]
		if !ok {
			return nil, fmt.Errorf("agent %q: tool source %q is not configured", name, sn)
		}
		sources = append(sources, src)
	}

	var handoffs []*tools.HandoffTool
	for _, hc := range ac.Handoffs {
		h, err := tools.NewHandoff(hc.Target, hc.Message)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", name, err)
		}
		handoffs = append(handoffs, h)
	}

	if store == nil {
		store, err = m.buildStore(ac, "")
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", name, err)
		}
	}

	return agent.NewEngine(agent.Config{
		Name:              name,
		Description:       ac.Description,
		Provider:          provider,
		Store:             store,
		Sources:           sources,
		Handoffs:          handoffs,
		SystemPrompt:      ac.SystemPrompt,
		MaxToolIterations: ac.MaxToolIterations,
	})
}

// EngineForSession binds an engine for the named agent to a session's
// history, so turns read and append the persisted conversation.
func (m *Manager) EngineForSession(name, sessionID string) (*agent.Engine, error) {
	ac, err := m.AgentConfig(name)
	if err != nil {
		return nil, err
	}
	store, err := m.buildStore(ac, sessionID)
	if err != nil {
		return nil, fmt.Errorf("agent %q: %w", name, err)
	}
	return m.BuildEngine(name, store)
}

// buildStore picks the memory backing for an agent. A non-empty sessionID
// pins the base store to the session service regardless of type; the
// token_window type wraps the base in a token budget.
func (m *Manager) buildStore(ac *config.AgentConfig, sessionID string) (memory.Store, error) {
	var base memory.Store
	if sessionID != "" {
		base = memory.NewSessionStore(m.sessions, sessionID)
	} else {
		base = memory.NewBufferStore()
	}

	mc := ac.Memory
	if mc == nil || mc.Type != "token_window" {
		return base, nil
	}

	model := mc.Model
	if model == "" {
		if pc, ok := m.cfg.Models[ac.Model]; ok {
			model = pc.Model
		}
	}
	maxTokens := mc.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return memory.NewTokenWindowStore(base, model, maxTokens)
}

// Close releases providers and sources. Safe to call on a partially built
// manager.
func (m *Manager) Close() error {
	var firstErr error
	if m.models != nil {
		if err := m.models.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for name, src := range m.sources {
		if c, ok := src.(tools.Closer); ok {
			if err := c.Close(); err != nil {
				m.logger.Warn("failed to close tool source", "source", name, "error", err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	if m.sql != nil {
		if err := m.sql.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
