package agent

import (
	"github.com/agentfusion/agentfusion/registry"
)

// Registry holds the engines available to the server and CLI, keyed by
// agent name.
type Registry struct {
	*registry.BaseRegistry[*Engine]
}

func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[*Engine]()}
}
