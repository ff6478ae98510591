package memory

import (
	"context"

	"github.com/agentfusion/agentfusion/protocol"
	"github.com/agentfusion/agentfusion/session"
)

// SessionStore adapts a session service to the Store interface for one
// session, so an engine's history persists across process restarts.
type SessionStore struct {
	service   session.Service
	sessionID string
}

func NewSessionStore(service session.Service, sessionID string) *SessionStore {
	return &SessionStore{service: service, sessionID: sessionID}
}

func (s *SessionStore) AddMessage(ctx context.Context, msg *protocol.Message) error {
	return s.service.AppendMessage(ctx, s.sessionID, msg)
}

func (s *SessionStore) Messages(ctx context.Context) ([]*protocol.Message, error) {
	return s.service.Messages(ctx, s.sessionID)
}

func (s *SessionStore) Clear(ctx context.Context) error {
	return s.service.ClearMessages(ctx, s.sessionID)
}

var _ Store = (*SessionStore)(nil)
