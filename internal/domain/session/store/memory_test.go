package store

import (
	"context"
	"testing"
	"time"

	"voicetrim-server-go/internal/domain/session"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(Config{TTL: time.Minute})
	t.Cleanup(func() {
		_ = s.Close(ctx)
	})

	sessionID := session.NewID()

	for _, content := range []string{"hello", "hi there", "what time is it"} {
		if err := s.Append(ctx, sessionID, session.Message{Role: "user", Content: content}); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	history, err := s.History(ctx, sessionID, 0)
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	if history[0].Content != "hello" || history[2].Content != "what time is it" {
		t.Fatalf("history out of order: %+v", history)
	}
	if history[0].At.IsZero() {
		t.Error("Append should stamp the message time")
	}

	limited, err := s.History(ctx, sessionID, 2)
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(limited) != 2 || limited[0].Content != "hi there" {
		t.Fatalf("expected the 2 most recent messages, got %+v", limited)
	}

	if err := s.Clear(ctx, sessionID); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	history, err = s.History(ctx, sessionID, 0)
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history after clear, got %d", len(history))
	}
}

func TestMemoryStore_EmptySessionID(t *testing.T) {
	s := NewMemory(Config{})
	t.Cleanup(func() {
		_ = s.Close(context.Background())
	})

	if err := s.Append(context.Background(), "", session.Message{Content: "x"}); err == nil {
		t.Fatal("expected error for empty session id")
	}
}

func TestMemoryStore_UnknownSession(t *testing.T) {
	s := NewMemory(Config{})
	t.Cleanup(func() {
		_ = s.Close(context.Background())
	})

	history, err := s.History(context.Background(), "missing", 0)
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected no history, got %d", len(history))
	}
}
