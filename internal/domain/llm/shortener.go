package llm

import (
	"context"
	"fmt"
	"strings"
)

const shortenSystemPrompt = "You specialize in summarizing text for spoken content.\n" +
	"- Shorten text without losing core meaning.\n" +
	"- Ensure speech sounds natural and clear.\n" +
	"- Respect word count limits to match time restrictions.\n" +
	"- Keep a conversational tone suitable for TTS systems."

// Shortener adapts a chat provider into the governor's rewrite collaborator.
type Shortener struct {
	provider Provider
}

// NewShortener wraps the provider for shorten rewrites.
func NewShortener(provider Provider) *Shortener {
	return &Shortener{provider: provider}
}

// Shorten asks the model for a rewrite that preserves meaning while fitting
// the spoken duration ceiling.
func (s *Shortener) Shorten(ctx context.Context, text string, maxDuration float64, targetWords int) (string, error) {
	userPrompt := fmt.Sprintf(
		"Please shorten the following text to fit within %g seconds of speech. "+
			"Limit the result to no more than %d words. "+
			"Ensure the output is clear, concise, and retains key points:\n\n%s",
		maxDuration, targetWords, text,
	)

	reply, err := s.provider.Chat(ctx, []Message{
		{Role: "system", Content: shortenSystemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		return "", err
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("empty rewrite from provider")
	}
	return reply, nil
}
