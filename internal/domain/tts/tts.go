package tts

import (
	"bytes"
	"context"
	"fmt"

	mp3 "github.com/hajimehoshi/go-mp3"

	"voicetrim-server-go/internal/platform/logging"
)

// Config holds the provider-independent TTS settings.
type Config struct {
	Type       string `yaml:"type"`
	Voice      string `yaml:"voice,omitempty"`
	Format     string `yaml:"format,omitempty"`
	OutputDir  string `yaml:"output_dir"`
	DeleteFile bool   `yaml:"delete_file"`
}

// Result is one synthesized utterance.
type Result struct {
	Audio    []byte
	FilePath string
	Duration float64 // seconds
}

// Provider is the speech-synthesis collaborator interface.
type Provider interface {
	// Synthesize renders text to audio and reports the measured duration.
	Synthesize(ctx context.Context, text string) (*Result, error)
	SetVoice(voice string) error
	Initialize() error
	Cleanup() error
}

// Factory creates a provider for a parsed config.
type Factory func(config *Config, logger *logging.Logger) (Provider, error)

var factories = make(map[string]Factory)

// Register registers a TTS provider factory under its type name.
func Register(name string, factory Factory) {
	factories[name] = factory
}

// Create builds and initializes the provider registered for name.
func Create(name string, config *Config, logger *logging.Logger) (Provider, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown TTS provider: %s", name)
	}

	provider, err := factory(config, logger)
	if err != nil {
		return nil, fmt.Errorf("create TTS provider: %v", err)
	}
	if err := provider.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize TTS provider: %v", err)
	}

	return provider, nil
}

// MeasureMP3Duration decodes an MP3 stream and returns its playback duration
// in seconds. The decoder emits 16-bit stereo PCM, 4 bytes per sample frame.
func MeasureMP3Duration(data []byte) (float64, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}
	sampleRate := decoder.SampleRate()
	if sampleRate <= 0 {
		return 0, fmt.Errorf("invalid mp3 sample rate: %d", sampleRate)
	}
	samples := decoder.Length() / 4
	return float64(samples) / float64(sampleRate), nil
}

// DurationEstimator measures spoken duration by actually synthesizing the
// text and decoding the result. Slower and costlier than the word-rate model
// but exact with respect to the downstream synthesis voice.
type DurationEstimator struct {
	provider Provider
}

// NewDurationEstimator wraps a provider as a duration estimator.
func NewDurationEstimator(provider Provider) *DurationEstimator {
	return &DurationEstimator{provider: provider}
}

func (e *DurationEstimator) Estimate(ctx context.Context, text string) (float64, error) {
	result, err := e.provider.Synthesize(ctx, text)
	if err != nil {
		return 0, err
	}
	return result.Duration, nil
}
