package agent

import (
	"time"

	"github.com/google/uuid"

	"github.com/agentfusion/agentfusion/protocol"
)

// EventKind discriminates the event union yielded by Engine.Push.
type EventKind string

const (
	// EventStreamingChunk carries an incremental fragment of model output
	// or of a streaming tool's partial result.
	EventStreamingChunk EventKind = "streaming_chunk"

	// EventThought carries reasoning text the model produced alongside or
	// instead of its visible answer.
	EventThought EventKind = "thought"

	// EventToolCallRequested announces the calls the model asked for, in
	// request order, before any of them run.
	EventToolCallRequested EventKind = "tool_call_requested"

	// EventToolCallExecuted carries the results of the requested calls,
	// in the same order.
	EventToolCallExecuted EventKind = "tool_call_executed"

	// EventResponse is a terminal event carrying the agent's final message.
	EventResponse EventKind = "response"

	// EventHandoff is a terminal event transferring the conversation to
	// another agent.
	EventHandoff EventKind = "handoff"
)

// Handoff describes a transfer of control to another agent.
type Handoff struct {
	// Target is the name of the agent taking over.
	Target string `json:"target"`

	// Message is the text presented to the target, either the executed
	// handoff tool's result or the configured default.
	Message string `json:"message,omitempty"`

	// Context carries conversation fragments the target should see, such
	// as the reasoning that preceded the transfer.
	Context []*protocol.Message `json:"context,omitempty"`
}

// Event is a single item in the stream produced by a turn. Exactly one of
// the payload fields is populated, selected by Kind.
type Event struct {
	// ID uniquely identifies this event.
	ID string `json:"id"`

	// InvocationID links every event of one turn together.
	InvocationID string `json:"invocation_id"`

	// Agent is the name of the agent that produced the event.
	Agent string `json:"agent"`

	// Timestamp records when the event was created.
	Timestamp time.Time `json:"timestamp"`

	// Kind selects the payload field below.
	Kind EventKind `json:"kind"`

	// Chunk holds the fragment for EventStreamingChunk.
	Chunk string `json:"chunk,omitempty"`

	// Thought holds the reasoning text for EventThought.
	Thought string `json:"thought,omitempty"`

	// ToolCalls holds the requested calls for EventToolCallRequested.
	ToolCalls []*protocol.ToolCall `json:"tool_calls,omitempty"`

	// ToolResults holds the outcomes for EventToolCallExecuted.
	ToolResults []*protocol.ToolResult `json:"tool_results,omitempty"`

	// Response holds the final assistant message for EventResponse.
	Response *protocol.Message `json:"response,omitempty"`

	// Handoff holds the transfer details for EventHandoff.
	Handoff *Handoff `json:"handoff,omitempty"`
}

// IsTerminal reports whether the event ends its turn.
func (e *Event) IsTerminal() bool {
	return e.Kind == EventResponse || e.Kind == EventHandoff
}

func newEvent(invocationID, agent string, kind EventKind) *Event {
	return &Event{
		ID:           uuid.New().String(),
		InvocationID: invocationID,
		Agent:        agent,
		Timestamp:    time.Now(),
		Kind:         kind,
	}
}
