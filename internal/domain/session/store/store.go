package store

import (
	"context"
	"fmt"
	"time"

	"voicetrim-server-go/internal/domain/session"
)

// Store keeps per-session chat history for the conversation service.
type Store interface {
	Append(ctx context.Context, sessionID string, msg session.Message) error
	// History returns up to limit most recent messages in chronological
	// order; limit <= 0 returns everything.
	History(ctx context.Context, sessionID string, limit int) ([]session.Message, error)
	Clear(ctx context.Context, sessionID string) error
	Close(ctx context.Context) error
}

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config describes the high level store selection parameters.
type Config struct {
	Driver string
	TTL    time.Duration
	Redis  *RedisConfig
	Memory *MemoryConfig
}

// MemoryConfig holds in-memory tuning knobs.
type MemoryConfig struct {
	GCInterval time.Duration
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

// New builds the store selected by cfg.Driver.
func New(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemory(cfg), nil
	case DriverRedis:
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("unknown session store driver: %s", cfg.Driver)
	}
}
