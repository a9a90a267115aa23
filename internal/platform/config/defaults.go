package config

import "time"

// DefaultConfig returns the baseline configuration used when no config file
// is present. File values and environment overrides are applied on top.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8000,
		},
		Web: WebConfig{
			Enabled:   true,
			Port:      8080,
			StaticDir: "./web",
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "logs",
			File:  "server.log",
		},
		Governor: GovernorConfig{
			MaxAudioLengthSeconds: 8,
			MaxAttempts:           2,
			Estimator:             "word_rate",
		},
		Session: SessionConfig{
			Driver:        "memory",
			TTL:           30 * time.Minute,
			HistoryWindow: 10,
			Memory: SessionMemoryConfig{
				GCInterval: 5 * time.Minute,
			},
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    "data/voicetrim.db",
		},
		System: SystemConfig{
			Prompt: "You are a friendly voice assistant. Your interface with users is voice, " +
				"so use short and concise responses and avoid unpronounceable punctuation.",
		},
		LLM: map[string]LLMConfig{
			"OpenAILLM": {
				Type:        "openai",
				ModelName:   "gpt-4o-mini",
				Temperature: 0.7,
				MaxTokens:   1000,
				Timeout:     30 * time.Second,
			},
		},
		TTS: map[string]TTSConfig{
			"EdgeTTS": {
				Type:      "edge",
				Voice:     "en-US-AriaNeural",
				Format:    "mp3",
				OutputDir: "tmp/audio",
			},
		},
		Selected: SelectedConfig{
			LLM: "OpenAILLM",
			TTS: "EdgeTTS",
		},
	}
}
