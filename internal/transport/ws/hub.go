package ws

import (
	"sync"

	"voicetrim-server-go/internal/platform/logging"
)

// Hub indexes live sessions by id so shutdown can reach every open
// connection.
type Hub struct {
	logger *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Register tracks a session until it disconnects.
func (h *Hub) Register(session *Session) {
	if session == nil {
		return
	}
	h.mu.Lock()
	h.sessions[session.ID()] = session
	h.mu.Unlock()
}

// Unregister drops the session with the given id.
func (h *Hub) Unregister(id string) {
	if id == "" {
		return
	}
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

// CloseAll tears down every tracked session with the given cause.
func (h *Hub) CloseAll(reason error) {
	if reason == nil {
		reason = ErrSessionShutdown
	}

	h.mu.Lock()
	open := make([]*Session, 0, len(h.sessions))
	for id, session := range h.sessions {
		open = append(open, session)
		delete(h.sessions, id)
	}
	h.mu.Unlock()

	for _, session := range open {
		session.Close(reason)
	}
	if len(open) > 0 {
		h.logger.InfoTag("WS", "closed %d session(s): %v", len(open), reason)
	}
}

// Count reports how many sessions are currently open.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
