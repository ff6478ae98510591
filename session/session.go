// Package session manages conversation sessions and their message history.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentfusion/agentfusion/protocol"
)

// Session is one conversation with an agent.
type Session struct {
	ID        string    `json:"id"`
	AgentName string    `json:"agent_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service stores sessions and their messages.
type Service interface {
	Create(ctx context.Context, agentName string) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context) ([]*Session, error)
	Delete(ctx context.Context, id string) error

	AppendMessage(ctx context.Context, sessionID string, msg *protocol.Message) error
	Messages(ctx context.Context, sessionID string) ([]*protocol.Message, error)
	ClearMessages(ctx context.Context, sessionID string) error
}

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = fmt.Errorf("session not found")

// InMemoryService keeps sessions in process memory.
type InMemoryService struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	messages map[string][]*protocol.Message
}

func NewInMemoryService() *InMemoryService {
	return &InMemoryService{
		sessions: make(map[string]*Session),
		messages: make(map[string][]*protocol.Message),
	}
}

func (s *InMemoryService) Create(ctx context.Context, agentName string) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		AgentName: agentName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *InMemoryService) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, exists := s.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	copied := *sess
	return &copied, nil
}

func (s *InMemoryService) List(ctx context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		copied := *sess
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.sessions, id)
	delete(s.messages, id)
	return nil
}

func (s *InMemoryService) AppendMessage(ctx context.Context, sessionID string, msg *protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, exists := s.sessions[sessionID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	s.messages[sessionID] = append(s.messages[sessionID], msg)
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryService) Messages(ctx context.Context, sessionID string) ([]*protocol.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, exists := s.sessions[sessionID]; !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	msgs := s.messages[sessionID]
	out := make([]*protocol.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *InMemoryService) ClearMessages(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sessionID]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	s.messages[sessionID] = nil
	return nil
}

var _ Service = (*InMemoryService)(nil)
