package llm

import (
	"context"
	"fmt"
	"time"

	"voicetrim-server-go/internal/platform/logging"
)

// Config holds the provider-independent LLM settings.
type Config struct {
	Type        string        `yaml:"type"`
	ModelName   string        `yaml:"model_name"`
	BaseURL     string        `yaml:"url,omitempty"`
	APIKey      string        `yaml:"api_key,omitempty"`
	Temperature float64       `yaml:"temperature,omitempty"`
	MaxTokens   int           `yaml:"max_tokens,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// Message is a single chat turn handed to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is the text-generation collaborator interface.
type Provider interface {
	// Chat produces one complete response for the conversation.
	Chat(ctx context.Context, messages []Message) (string, error)
	Initialize() error
	Cleanup() error
}

// Factory creates a provider for a parsed config.
type Factory func(config *Config, logger *logging.Logger) (Provider, error)

var factories = make(map[string]Factory)

// Register registers an LLM provider factory under its type name.
func Register(name string, factory Factory) {
	factories[name] = factory
}

// Create builds and initializes the provider registered for name.
func Create(name string, config *Config, logger *logging.Logger) (Provider, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider: %s", name)
	}

	provider, err := factory(config, logger)
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %v", err)
	}
	if err := provider.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize LLM provider: %v", err)
	}

	return provider, nil
}
