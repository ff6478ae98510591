package tools

import (
	"context"
	"fmt"
)

// HandoffTool transfers the conversation to another agent. Calling it
// returns the handoff message; the turn engine detects the tool's type and
// terminates the turn with a handoff instead of continuing.
type HandoffTool struct {
	info *Info
}

// NewHandoff builds a handoff tool for the given target agent. The message
// is returned as the tool result and becomes the default handoff payload.
func NewHandoff(target, message string) (*HandoffTool, error) {
	if target == "" {
		return nil, fmt.Errorf("handoff target cannot be empty")
	}
	if message == "" {
		message = fmt.Sprintf("Transferred to %s, adopting the role of %s immediately.", target, target)
	}

	return &HandoffTool{
		info: &Info{
			Name:        "transfer_to_" + target,
			Description: fmt.Sprintf("Handoff to %s.", target),
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
			Type:    ToolTypeHandoff,
			Target:  target,
			Message: message,
		},
	}, nil
}

func (t *HandoffTool) Info() *Info {
	return t.info
}

func (t *HandoffTool) Call(ctx context.Context, args map[string]interface{}) (*Result, error) {
	return &Result{Content: t.info.Message}, nil
}
