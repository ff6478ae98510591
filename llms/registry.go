package llms

import (
	"fmt"

	"github.com/agentfusion/agentfusion/config"
	"github.com/agentfusion/agentfusion/registry"
)

// Registry holds named model providers.
type Registry struct {
	*registry.BaseRegistry[Provider]
}

func NewRegistry() *Registry {
	return &Registry{
		BaseRegistry: registry.NewBaseRegistry[Provider](),
	}
}

// CreateFromConfig constructs a provider from config and registers it under
// the given name.
func (r *Registry) CreateFromConfig(name string, cfg *config.ModelConfig) (Provider, error) {
	if name == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	if cfg == nil {
		return nil, fmt.Errorf("model config cannot be nil")
	}

	var provider Provider
	var err error

	switch cfg.Provider {
	case config.ModelProviderOpenAI:
		provider, err = NewOpenAIProviderFromConfig(cfg)
	case config.ModelProviderAnthropic:
		provider, err = NewAnthropicProviderFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s (supported: openai, anthropic)", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create model provider: %w", err)
	}

	if err := r.Register(name, provider); err != nil {
		provider.Close()
		return nil, err
	}
	return provider, nil
}

// Close closes every registered provider.
func (r *Registry) Close() error {
	var firstErr error
	for _, p := range r.List() {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
