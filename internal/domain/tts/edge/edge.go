package edge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/wujunwei928/edge-tts-go/edge_tts"

	"voicetrim-server-go/internal/domain/tts"
	"voicetrim-server-go/internal/platform/logging"
)

func init() {
	tts.Register("edge", NewProvider)
}

// Provider implements tts.Provider using the Microsoft Edge TTS service.
type Provider struct {
	config *tts.Config
	logger *logging.Logger

	voice     string
	outputDir string
	format    string
}

// NewProvider creates an Edge TTS provider.
func NewProvider(config *tts.Config, logger *logging.Logger) (tts.Provider, error) {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	provider := &Provider{
		config:    config,
		logger:    logger,
		voice:     config.Voice,
		outputDir: config.OutputDir,
		format:    config.Format,
	}

	if provider.voice == "" {
		provider.voice = "en-US-AriaNeural"
	}
	if provider.outputDir == "" {
		provider.outputDir = os.TempDir()
	}
	if provider.format == "" {
		provider.format = "mp3"
	}

	return provider, nil
}

// Initialize prepares the audio output directory.
func (p *Provider) Initialize() error {
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if p.logger != nil {
		p.logger.InfoTag("TTS", "edge provider ready, voice: %s", p.voice)
	}
	return nil
}

// Cleanup removes leftover synthesized audio when configured to do so.
func (p *Provider) Cleanup() error {
	if !p.config.DeleteFile {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(p.outputDir, "edge_tts_*."+p.format))
	if err != nil {
		return fmt.Errorf("list synthesized files: %v", err)
	}
	for _, file := range matches {
		if err := os.Remove(file); err != nil {
			return fmt.Errorf("remove synthesized file: %v", err)
		}
	}
	return nil
}

// SetVoice switches the synthesis voice.
func (p *Provider) SetVoice(voice string) error {
	if voice == "" {
		return fmt.Errorf("voice cannot be empty")
	}
	p.voice = voice
	return nil
}

// Synthesize renders text through Edge TTS, stores the MP3 on disk and
// measures the true playback duration from the decoded stream.
func (p *Provider) Synthesize(ctx context.Context, text string) (*tts.Result, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	communicate, err := edge_tts.NewCommunicate(text, edge_tts.SetVoice(p.voice))
	if err != nil {
		return nil, fmt.Errorf("create edge tts communicator: %w", err)
	}

	start := time.Now()
	audioData, err := communicate.Stream()
	if err != nil {
		return nil, fmt.Errorf("edge tts synthesis failed: %w", err)
	}

	duration, err := tts.MeasureMP3Duration(audioData)
	if err != nil {
		return nil, fmt.Errorf("measure synthesized audio: %w", err)
	}

	filePath := filepath.Join(p.outputDir, fmt.Sprintf("edge_tts_%s.%s", uuid.NewString(), p.format))
	if err := os.WriteFile(filePath, audioData, 0o644); err != nil {
		return nil, fmt.Errorf("write audio file: %w", err)
	}

	if p.logger != nil {
		p.logger.DebugTag("TTS", "synthesized %d bytes (%.2fs audio) in %v",
			len(audioData), duration, time.Since(start))
	}

	return &tts.Result{
		Audio:    audioData,
		FilePath: filePath,
		Duration: duration,
	}, nil
}
