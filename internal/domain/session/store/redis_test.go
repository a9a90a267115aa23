package store

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"voicetrim-server-go/internal/domain/session"
)

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	s, err := NewRedis(Config{
		TTL: time.Minute,
		Redis: &RedisConfig{
			Addr: mr.Addr(),
		},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close(ctx)
	})

	sessionID := "redis-session"
	messages := []session.Message{
		{Role: "user", Content: "turn on the lights"},
		{Role: "assistant", Content: "done"},
		{Role: "user", Content: "thanks"},
	}
	for _, msg := range messages {
		if err := s.Append(ctx, sessionID, msg); err != nil {
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
	if history[1].Role != "assistant" || history[1].Content != "done" {
		t.Fatalf("unexpected history entry: %+v", history[1])
	}

	limited, err := s.History(ctx, sessionID, 2)
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(limited) != 2 || limited[0].Content != "done" {
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

func TestRedisStore_TTLRefresh(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	s, err := NewRedis(Config{
		TTL:   time.Second,
		Redis: &RedisConfig{Addr: mr.Addr()},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close(ctx)
	})

	if err := s.Append(ctx, "expiring", session.Message{Role: "user", Content: "hi"}); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	mr.FastForward(2 * time.Second)

	history, err := s.History(ctx, "expiring", 0)
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected history to expire, got %d messages", len(history))
	}
}

func TestNew_DriverSelection(t *testing.T) {
	s, err := New(Config{Driver: "memory"})
	if err != nil {
		t.Fatalf("New(memory) error: %v", err)
	}
	_ = s.Close(context.Background())

	if _, err := New(Config{Driver: "cassandra"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
