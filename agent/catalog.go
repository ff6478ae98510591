package agent

import (
	"context"
	"fmt"

	"github.com/agentfusion/agentfusion/llms"
	"github.com/agentfusion/agentfusion/tools"
)

// catalog is the tool surface of one iteration: every listed tool, a route
// back to its source, and the handoff registry in effect for the turn.
type catalog struct {
	infos    []*tools.Info
	route    map[string]tools.Source
	handoffs map[string]*tools.Info
}

func (c *catalog) definitions() []llms.ToolDefinition {
	defs := make([]llms.ToolDefinition, 0, len(c.infos))
	for _, info := range c.infos {
		defs = append(defs, llms.ToolDefinition{
			Name:        info.Name,
			Description: info.Description,
			Parameters:  info.Parameters,
		})
	}
	return defs
}

// resolveCatalog lists every source's tools. The first source to claim a
// name wins; later claims are dropped with a warning. The handoff registry
// is built from the first resolution and reused for the engine's lifetime
// until InvalidateHandoffs.
func (e *Engine) resolveCatalog(ctx context.Context) (*catalog, error) {
	cat := &catalog{route: make(map[string]tools.Source)}
	for _, src := range e.sources {
		infos, err := src.ListTools(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tools from source %q: %w", src.Name(), err)
		}
		for _, info := range infos {
			if _, exists := cat.route[info.Name]; exists {
				e.logger.Warn("duplicate tool name, keeping first",
					"tool", info.Name, "source", src.Name())
				continue
			}
			cat.route[info.Name] = src
			cat.infos = append(cat.infos, info)
		}
	}

	e.handoffMu.Lock()
	if !e.handoffCached {
		e.handoffCache = make(map[string]*tools.Info)
		for _, info := range cat.infos {
			if info.IsHandoff() {
				e.handoffCache[info.Name] = info
			}
		}
		e.handoffCached = true
	}
	cat.handoffs = e.handoffCache
	e.handoffMu.Unlock()

	return cat, nil
}
