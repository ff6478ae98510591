// Package memory provides context stores: the conversation history an agent
// reads before each model invocation.
package memory

import (
	"context"
	"sync"

	"github.com/agentfusion/agentfusion/protocol"
)

// Store is an agent's conversation history.
type Store interface {
	// AddMessage appends a message.
	AddMessage(ctx context.Context, msg *protocol.Message) error

	// Messages returns the history to present to the model, oldest first.
	Messages(ctx context.Context) ([]*protocol.Message, error)

	// Clear removes all messages.
	Clear(ctx context.Context) error
}

// BufferStore keeps the full history in memory.
type BufferStore struct {
	mu       sync.RWMutex
	messages []*protocol.Message
}

func NewBufferStore() *BufferStore {
	return &BufferStore{}
}

func (s *BufferStore) AddMessage(ctx context.Context, msg *protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *BufferStore) Messages(ctx context.Context) ([]*protocol.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*protocol.Message, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

func (s *BufferStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	return nil
}

var _ Store = (*BufferStore)(nil)
