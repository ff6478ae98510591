// Package llms provides model provider clients with a shared streaming
// interface.
package llms

import (
	"context"

	"github.com/agentfusion/agentfusion/protocol"
)

// ChunkType discriminates streaming chunks.
type ChunkType string

const (
	ChunkTypeText     ChunkType = "text"
	ChunkTypeThinking ChunkType = "thinking"
	ChunkTypeToolCall ChunkType = "tool_call"
	ChunkTypeDone     ChunkType = "done"
	ChunkTypeError    ChunkType = "error"
)

// StreamChunk is one unit of a streaming model response.
type StreamChunk struct {
	Type     ChunkType
	Text     string
	ToolCall *protocol.ToolCall
	Tokens   int
	Error    error
}

// ToolDefinition describes a tool on the provider wire.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Result is the final output of one model invocation: either text (possibly
// with thought) or tool call requests.
type Result struct {
	Text      string
	Thought   string
	ToolCalls []*protocol.ToolCall
	Tokens    int
}

// HasToolCalls reports whether the model requested tool execution.
func (r *Result) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// Provider is a model provider client.
type Provider interface {
	// Generate performs a non-streaming request.
	Generate(ctx context.Context, messages []*protocol.Message, tools []ToolDefinition) (*Result, error)

	// GenerateStreaming performs a streaming request. The channel carries
	// text/thinking/tool_call chunks and is terminated by a done chunk, or
	// an error chunk on failure, then closed.
	GenerateStreaming(ctx context.Context, messages []*protocol.Message, tools []ToolDefinition) (<-chan StreamChunk, error)

	ModelName() string

	Close() error
}
