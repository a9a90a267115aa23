package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"voicetrim-server-go/internal/domain/llm"
	"voicetrim-server-go/internal/platform/logging"
)

func init() {
	llm.Register("openai", NewProvider)
}

// Provider implements llm.Provider on top of the OpenAI chat completion API.
type Provider struct {
	config *llm.Config
	logger *logging.Logger
	client *openai.Client

	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

// NewProvider creates an OpenAI-backed provider.
func NewProvider(config *llm.Config, logger *logging.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	provider := &Provider{
		config:      config,
		logger:      logger,
		model:       config.ModelName,
		maxTokens:   config.MaxTokens,
		temperature: float32(config.Temperature),
		timeout:     config.Timeout,
	}

	if provider.model == "" {
		provider.model = "gpt-4o-mini"
	}
	if provider.maxTokens <= 0 {
		provider.maxTokens = 1000
	}
	if provider.temperature < 0 || provider.temperature > 2 {
		provider.temperature = 0.7
	}
	if provider.timeout <= 0 {
		provider.timeout = 30 * time.Second
	}

	return provider, nil
}

// Initialize validates the configuration and builds the API client.
func (p *Provider) Initialize() error {
	if p.config.APIKey == "" {
		return fmt.Errorf("missing OpenAI API key")
	}

	clientConfig := openai.DefaultConfig(p.config.APIKey)
	if p.config.BaseURL != "" {
		clientConfig.BaseURL = p.config.BaseURL
	}

	p.client = openai.NewClientWithConfig(clientConfig)
	if p.logger != nil {
		p.logger.InfoTag("LLM", "openai provider ready, model: %s", p.model)
	}
	return nil
}

// Cleanup releases provider resources.
func (p *Provider) Cleanup() error {
	return nil
}

// Chat issues a non-streaming chat completion bounded by the configured
// per-attempt timeout.
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("provider not initialized")
	}

	requestCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	response, err := p.client.CreateChatCompletion(requestCtx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    convertMessages(messages),
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	})
	if err != nil {
		if p.logger != nil {
			p.logger.ErrorTag("LLM", "chat completion failed: %v", err)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	if p.logger != nil {
		p.logger.DebugTag("LLM", "chat completion in %v, tokens: %d",
			time.Since(start), response.Usage.TotalTokens)
	}
	return response.Choices[0].Message.Content, nil
}

func convertMessages(messages []llm.Message) []openai.ChatCompletionMessage {
	converted := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		converted[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return converted
}
