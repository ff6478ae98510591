package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrNotStarted is returned by Push when the engine has not been
	// started or has already ended.
	ErrNotStarted = errors.New("agent: engine not started")

	// ErrTurnActive is returned by Push while a previous turn's stream is
	// still being consumed.
	ErrTurnActive = errors.New("agent: a turn is already in progress")
)

// TurnError wraps a fatal failure that aborted a turn. It is delivered
// through the error slot of the event stream, never as an event.
type TurnError struct {
	Agent     string
	Iteration int
	Err       error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("agent %q: turn failed at iteration %d: %v", e.Agent, e.Iteration, e.Err)
}

func (e *TurnError) Unwrap() error { return e.Err }
