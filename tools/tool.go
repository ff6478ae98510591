// Package tools defines capability sources and the tools they expose to
// agents.
package tools

import (
	"context"
	"iter"
)

// ToolType distinguishes ordinary tools from handoff tools. Invoking a
// handoff tool transfers the conversation to another agent.
type ToolType string

const (
	ToolTypeNormal  ToolType = "normal"
	ToolTypeHandoff ToolType = "handoff"
)

// Info describes a tool: its name, what it does, and the JSON schema of its
// parameters. Handoff tools additionally carry the target agent and a
// default handoff message.
type Info struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
	Type        ToolType               `json:"type,omitempty"`
	Target      string                 `json:"target,omitempty"`
	Message     string                 `json:"message,omitempty"`
}

// IsHandoff reports whether invoking this tool hands the conversation off.
func (i *Info) IsHandoff() bool {
	return i != nil && i.Type == ToolTypeHandoff
}

// Result is the outcome of one tool invocation. Streaming tools emit partial
// results before the final one.
type Result struct {
	Content  string                 `json:"content"`
	IsError  bool                   `json:"is_error,omitempty"`
	Partial  bool                   `json:"partial,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Tool is a single callable capability.
type Tool interface {
	Info() *Info
	Call(ctx context.Context, args map[string]interface{}) (*Result, error)
}

// StreamingTool emits intermediate results while executing. The sequence
// ends with the final result.
type StreamingTool interface {
	Tool
	CallStream(ctx context.Context, args map[string]interface{}) iter.Seq2[*Result, error]
}

// Source is a named provider of tools. Sources list their catalog and route
// calls by tool name.
type Source interface {
	Name() string
	ListTools(ctx context.Context) ([]*Info, error)
	Call(ctx context.Context, name string, args map[string]interface{}) (*Result, error)
}

// StreamingSource can interleave partial results into a caller's stream.
type StreamingSource interface {
	Source
	CallStream(ctx context.Context, name string, args map[string]interface{}) iter.Seq2[*Result, error]
}

// Closer is implemented by sources that hold external resources.
type Closer interface {
	Close() error
}
