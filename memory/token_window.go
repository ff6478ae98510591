package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/agentfusion/agentfusion/protocol"
)

var (
	encodingCache   = make(map[string]*tiktoken.Tiktoken)
	encodingCacheMu sync.RWMutex
)

func encodingForModel(model string) (*tiktoken.Tiktoken, error) {
	encodingCacheMu.RLock()
	cached, exists := encodingCache[model]
	encodingCacheMu.RUnlock()
	if exists {
		return cached, nil
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Unknown models approximate with cl100k_base.
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to get encoding: %w", err)
		}
	}

	encodingCacheMu.Lock()
	encodingCache[model] = encoding
	encodingCacheMu.Unlock()
	return encoding, nil
}

// TokenWindowStore wraps a Store and limits the messages it returns to a
// token budget, keeping the most recent messages. System messages always
// survive the cut.
type TokenWindowStore struct {
	inner     Store
	encoding  *tiktoken.Tiktoken
	maxTokens int
}

func NewTokenWindowStore(inner Store, model string, maxTokens int) (*TokenWindowStore, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("maxTokens must be positive")
	}
	encoding, err := encodingForModel(model)
	if err != nil {
		return nil, err
	}
	return &TokenWindowStore{
		inner:     inner,
		encoding:  encoding,
		maxTokens: maxTokens,
	}, nil
}

func (s *TokenWindowStore) AddMessage(ctx context.Context, msg *protocol.Message) error {
	return s.inner.AddMessage(ctx, msg)
}

func (s *TokenWindowStore) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}

func (s *TokenWindowStore) Messages(ctx context.Context) ([]*protocol.Message, error) {
	all, err := s.inner.Messages(ctx)
	if err != nil {
		return nil, err
	}

	var system []*protocol.Message
	var rest []*protocol.Message
	budget := s.maxTokens
	for _, msg := range all {
		if msg.Role == protocol.RoleSystem {
			system = append(system, msg)
			budget -= s.countMessage(msg)
		} else {
			rest = append(rest, msg)
		}
	}

	// Walk backwards from the most recent message until the budget runs
	// out.
	var kept []*protocol.Message
	used := 0
	for i := len(rest) - 1; i >= 0; i-- {
		tokens := s.countMessage(rest[i])
		if used+tokens > budget {
			break
		}
		kept = append([]*protocol.Message{rest[i]}, kept...)
		used += tokens
	}

	return append(system, kept...), nil
}

// countMessage approximates per-message overhead the way chat endpoints
// account for it.
func (s *TokenWindowStore) countMessage(msg *protocol.Message) int {
	const tokensPerMessage = 3
	total := tokensPerMessage
	total += len(s.encoding.Encode(string(msg.Role), nil, nil))
	total += len(s.encoding.Encode(msg.Content, nil, nil))
	if msg.Thought != "" {
		total += len(s.encoding.Encode(msg.Thought, nil, nil))
	}
	return total
}

var _ Store = (*TokenWindowStore)(nil)
