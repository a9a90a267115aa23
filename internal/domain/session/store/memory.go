package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"voicetrim-server-go/internal/domain/session"
)

type memoryEntry struct {
	messages  []session.Message
	expiresAt time.Time
}

type memoryStore struct {
	items       map[string]*memoryEntry
	mutex       sync.RWMutex
	ttl         time.Duration
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds an in-memory session store.
func NewMemory(cfg Config) Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	cleanup := 5 * time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	s := &memoryStore{
		items:       make(map[string]*memoryEntry),
		ttl:         ttl,
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanupExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) cleanupExpired() {
	now := time.Now()
	s.mutex.Lock()
	for id, entry := range s.items {
		if now.After(entry.expiresAt) {
			delete(s.items, id)
		}
	}
	s.mutex.Unlock()
}

func (s *memoryStore) Append(_ context.Context, sessionID string, msg session.Message) error {
	if sessionID == "" {
		return fmt.Errorf("session id required")
	}
	if msg.At.IsZero() {
		msg.At = time.Now()
	}

	s.mutex.Lock()
	entry, ok := s.items[sessionID]
	if !ok {
		entry = &memoryEntry{}
		s.items[sessionID] = entry
	}
	entry.messages = append(entry.messages, msg)
	entry.expiresAt = time.Now().Add(s.ttl)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) History(_ context.Context, sessionID string, limit int) ([]session.Message, error) {
	s.mutex.RLock()
	entry, ok := s.items[sessionID]
	if !ok || time.Now().After(entry.expiresAt) {
		s.mutex.RUnlock()
		return nil, nil
	}
	messages := entry.messages
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	out := make([]session.Message, len(messages))
	copy(out, messages)
	s.mutex.RUnlock()
	return out, nil
}

func (s *memoryStore) Clear(_ context.Context, sessionID string) error {
	s.mutex.Lock()
	delete(s.items, sessionID)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}
