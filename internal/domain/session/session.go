package session

import (
	"time"

	"github.com/google/uuid"
)

// Message is one chat turn kept in a session's history.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// NewID mints a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}
