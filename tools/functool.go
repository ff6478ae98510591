package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// FuncTool wraps a typed Go function as a Tool, generating the parameter
// schema from the argument struct's tags.
type FuncTool[T any] struct {
	info *Info
	fn   func(ctx context.Context, args T) (string, error)
}

// NewFunc builds a tool from a typed function.
func NewFunc[T any](name, description string, fn func(ctx context.Context, args T) (string, error)) (*FuncTool[T], error) {
	if name == "" {
		return nil, fmt.Errorf("tool name cannot be empty")
	}
	if fn == nil {
		return nil, fmt.Errorf("tool function cannot be nil")
	}

	schema, err := GenerateSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema for %s: %w", name, err)
	}

	return &FuncTool[T]{
		info: &Info{
			Name:        name,
			Description: description,
			Parameters:  schema,
			Type:        ToolTypeNormal,
		},
		fn: fn,
	}, nil
}

func (t *FuncTool[T]) Info() *Info {
	return t.info
}

func (t *FuncTool[T]) Call(ctx context.Context, args map[string]interface{}) (*Result, error) {
	// Round-trip through JSON to get typed args.
	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments: %w", err)
	}
	var typed T
	if err := json.Unmarshal(data, &typed); err != nil {
		return &Result{
			Content: fmt.Sprintf("invalid arguments for %s: %v", t.info.Name, err),
			IsError: true,
		}, nil
	}

	content, err := t.fn(ctx, typed)
	if err != nil {
		return &Result{Content: err.Error(), IsError: true}, nil
	}
	return &Result{Content: content}, nil
}
