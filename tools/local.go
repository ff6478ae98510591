package tools

import (
	"context"
	"fmt"
	"iter"
	"sync"
)

// LocalSource serves tools implemented in-process.
type LocalSource struct {
	name string

	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewLocalSource creates an empty local source.
func NewLocalSource(name string) *LocalSource {
	return &LocalSource{
		name:  name,
		tools: make(map[string]Tool),
	}
}

func (s *LocalSource) Name() string {
	return s.name
}

// Register adds a tool. Registration order is preserved in listings.
func (s *LocalSource) Register(tool Tool) error {
	if tool == nil || tool.Info() == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	name := tool.Info().Name
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	s.tools[name] = tool
	s.order = append(s.order, name)
	return nil
}

func (s *LocalSource) ListTools(ctx context.Context) ([]*Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]*Info, 0, len(s.order))
	for _, name := range s.order {
		infos = append(infos, s.tools[name].Info())
	}
	return infos, nil
}

func (s *LocalSource) Call(ctx context.Context, name string, args map[string]interface{}) (*Result, error) {
	tool, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	return tool.Call(ctx, args)
}

// CallStream delegates to the tool's streaming path when it has one,
// otherwise yields the single blocking result.
func (s *LocalSource) CallStream(ctx context.Context, name string, args map[string]interface{}) iter.Seq2[*Result, error] {
	return func(yield func(*Result, error) bool) {
		tool, err := s.lookup(name)
		if err != nil {
			yield(nil, err)
			return
		}

		if streaming, ok := tool.(StreamingTool); ok {
			for result, err := range streaming.CallStream(ctx, args) {
				if !yield(result, err) {
					return
				}
				if err != nil {
					return
				}
			}
			return
		}

		result, err := tool.Call(ctx, args)
		yield(result, err)
	}
}

func (s *LocalSource) lookup(name string) (Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tool, exists := s.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool %q not found in source %q", name, s.name)
	}
	return tool, nil
}
