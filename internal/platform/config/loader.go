package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "voicetrim-server-go/internal/platform/errors"
)

const defaultConfigPath = ".config.yaml"

// Loader reads configuration from a yaml file with .env and environment
// variable overrides applied on top of the defaults.
type Loader struct {
	useDotEnv bool
	path      string
}

// NewLoader creates a loader reading from the default config path.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		path:      defaultConfigPath,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the configuration file path (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// Load builds the effective configuration and validates it. The returned
// string is the config file path that was read, empty when only defaults and
// environment variables were used.
func (l *Loader) Load() (*Config, string, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("no .env file found, using system environment variables")
		}
	}

	path := l.path
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		path = envPath
	}

	cfg := DefaultConfig()

	readPath := ""
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, "", platformerrors.Wrap(platformerrors.KindConfig, "config.load", "parse config file", err)
		}
		readPath = path
	case os.IsNotExist(err):
		// defaults + environment only
	default:
		return nil, "", platformerrors.Wrap(platformerrors.KindConfig, "config.load", "read config file", err)
	}

	l.applyEnv(cfg)

	if err := l.validate(cfg); err != nil {
		return nil, "", err
	}

	return cfg, readPath, nil
}

func (l *Loader) applyEnv(cfg *Config) {
	if v := os.Getenv("MAX_AUDIO_LENGTH_SECONDS"); v != "" {
		if seconds, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Governor.MaxAudioLengthSeconds = seconds
		}
	}
	if v := os.Getenv("API_HOST"); v != "" {
		cfg.Server.IP = v
	}
	if v := os.Getenv("API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = port
		}
	}
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		cfg.Server.AuthSecret = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		for name, llmCfg := range cfg.LLM {
			if llmCfg.Type == "openai" && llmCfg.APIKey == "" {
				llmCfg.APIKey = v
				cfg.LLM[name] = llmCfg
			}
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Session.Redis.Addr = v
	}
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("invalid server port: %d", cfg.Server.Port))
	}
	if cfg.Web.Enabled && (cfg.Web.Port <= 0 || cfg.Web.Port > 65535) {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("invalid web port: %d", cfg.Web.Port))
	}
	// Policy errors are fatal at startup, never recoverable per request.
	if cfg.Governor.MaxAudioLengthSeconds <= 0 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("max_audio_length_seconds must be positive, got %v", cfg.Governor.MaxAudioLengthSeconds))
	}
	if cfg.Governor.MaxAttempts < 1 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("max_attempts must be at least 1, got %d", cfg.Governor.MaxAttempts))
	}
	if cfg.Governor.Estimator != "word_rate" && cfg.Governor.Estimator != "synthesis" {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("unknown estimator: %s", cfg.Governor.Estimator))
	}
	if _, ok := cfg.LLM[cfg.Selected.LLM]; !ok {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("selected LLM %q not configured", cfg.Selected.LLM))
	}
	if _, ok := cfg.TTS[cfg.Selected.TTS]; !ok {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("selected TTS %q not configured", cfg.Selected.TTS))
	}
	if cfg.Session.Driver != "memory" && cfg.Session.Driver != "redis" {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("unknown session driver: %s", cfg.Session.Driver))
	}
	if cfg.Session.Driver == "redis" && cfg.Session.Redis.Addr == "" {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			"session driver redis requires an address")
	}
	return nil
}
