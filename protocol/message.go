// Package protocol defines the message and tool-call types exchanged between
// agents, model providers, and tool sources.
package protocol

import "strings"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single entry in an agent's conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Source names the agent or user that produced the message.
	Source string `json:"source,omitempty"`

	// Thought carries reasoning text emitted alongside the content.
	Thought string `json:"thought,omitempty"`

	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []*ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID is set on tool messages to bind the result to its call.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Results carries the per-call outcomes on tool messages so provider
	// adapters can split them back into wire entries.
	Results []*ToolResult `json:"results,omitempty"`
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"arguments"`

	// Raw preserves the provider's argument payload. Args is nil when the
	// payload failed to parse; executors surface that as a per-call error
	// instead of failing the turn.
	Raw string `json:"raw_arguments,omitempty"`
}

// ToolResult is the outcome of executing one tool call.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

func NewSystemMessage(text string) *Message {
	return &Message{Role: RoleSystem, Content: text}
}

func NewUserMessage(source, text string) *Message {
	return &Message{Role: RoleUser, Source: source, Content: text}
}

func NewAssistantMessage(source, text string) *Message {
	return &Message{Role: RoleAssistant, Source: source, Content: text}
}

// NewToolMessage renders a set of tool results as a single tool-role message.
// Provider adapters may split it back into per-call entries on the wire.
func NewToolMessage(source string, results []*ToolResult) *Message {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(r.Content)
	}
	return &Message{Role: RoleTool, Source: source, Content: sb.String(), Results: results}
}

// HasToolCalls reports whether the message requests tool execution.
func (m *Message) HasToolCalls() bool {
	return m != nil && len(m.ToolCalls) > 0
}
