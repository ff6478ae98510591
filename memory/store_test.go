package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/agentfusion/agentfusion/protocol"
)

func TestBufferStore(t *testing.T) {
	ctx := context.Background()
	store := NewBufferStore()

	if err := store.AddMessage(ctx, protocol.NewUserMessage("user", "one")); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if err := store.AddMessage(ctx, protocol.NewAssistantMessage("agent", "two")); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	messages, err := store.Messages(ctx)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(messages) != 2 || messages[0].Content != "one" || messages[1].Content != "two" {
		t.Errorf("unexpected messages %v", messages)
	}

	// The returned slice is a copy.
	messages[0] = nil
	again, _ := store.Messages(ctx)
	if again[0] == nil {
		t.Error("expected Messages to return a copy")
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	messages, _ = store.Messages(ctx)
	if len(messages) != 0 {
		t.Errorf("expected empty store, got %d messages", len(messages))
	}
}

func TestTokenWindowKeepsRecent(t *testing.T) {
	ctx := context.Background()
	inner := NewBufferStore()

	long := strings.Repeat("lorem ipsum dolor ", 50)
	_ = inner.AddMessage(ctx, protocol.NewUserMessage("user", long))
	_ = inner.AddMessage(ctx, protocol.NewUserMessage("user", long))
	_ = inner.AddMessage(ctx, protocol.NewUserMessage("user", "recent"))

	store, err := NewTokenWindowStore(inner, "gpt-4o", 50)
	if err != nil {
		t.Fatalf("NewTokenWindowStore failed: %v", err)
	}

	messages, err := store.Messages(ctx)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(messages) != 1 || messages[0].Content != "recent" {
		t.Errorf("expected only the recent message, got %v", messages)
	}
}

func TestTokenWindowKeepsSystem(t *testing.T) {
	ctx := context.Background()
	inner := NewBufferStore()
	_ = inner.AddMessage(ctx, protocol.NewSystemMessage("you are terse"))
	long := strings.Repeat("words words words ", 100)
	_ = inner.AddMessage(ctx, protocol.NewUserMessage("user", long))
	_ = inner.AddMessage(ctx, protocol.NewUserMessage("user", "hi"))

	store, err := NewTokenWindowStore(inner, "gpt-4o", 60)
	if err != nil {
		t.Fatalf("NewTokenWindowStore failed: %v", err)
	}

	messages, err := store.Messages(ctx)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(messages) < 1 || messages[0].Role != protocol.RoleSystem {
		t.Fatalf("expected system message first, got %v", messages)
	}
	for _, msg := range messages {
		if msg.Content == long {
			t.Error("expected the long message to be dropped")
		}
	}
}

func TestTokenWindowRejectsZeroBudget(t *testing.T) {
	if _, err := NewTokenWindowStore(NewBufferStore(), "gpt-4o", 0); err == nil {
		t.Error("expected error for zero budget")
	}
}
