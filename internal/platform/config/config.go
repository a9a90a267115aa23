package config

import "time"

type Config struct {
	Server   ServerConfig         `yaml:"server"`
	Web      WebConfig            `yaml:"web"`
	Log      LogConfig            `yaml:"log"`
	Governor GovernorConfig       `yaml:"governor"`
	Session  SessionConfig        `yaml:"session"`
	Storage  StorageConfig        `yaml:"storage"`
	System   SystemConfig         `yaml:"system"`
	LLM      map[string]LLMConfig `yaml:"LLM"`
	TTS      map[string]TTSConfig `yaml:"TTS"`
	Selected SelectedConfig       `yaml:"selected_module"`
}

// ServerConfig holds the websocket transport listener settings.
type ServerConfig struct {
	IP         string `yaml:"ip"`
	Port       int    `yaml:"port"`
	AuthSecret string `yaml:"auth_secret"`
}

// WebConfig holds the HTTP API and static front-end settings.
type WebConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

// GovernorConfig configures the response length governor. The values map
// directly onto the immutable policy constructed at startup.
type GovernorConfig struct {
	MaxAudioLengthSeconds float64 `yaml:"max_audio_length_seconds"`
	MaxAttempts           int     `yaml:"max_attempts"`
	Estimator             string  `yaml:"estimator"` // word_rate or synthesis
}

type SessionConfig struct {
	Driver        string              `yaml:"driver"` // memory or redis
	TTL           time.Duration       `yaml:"ttl"`
	HistoryWindow int                 `yaml:"history_window"`
	Redis         SessionRedisConfig  `yaml:"redis,omitempty"`
	Memory        SessionMemoryConfig `yaml:"memory,omitempty"`
}

type SessionRedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type SessionMemoryConfig struct {
	GCInterval time.Duration `yaml:"gc_interval"`
}

type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type SystemConfig struct {
	Prompt string `yaml:"prompt"`
}

type LLMConfig struct {
	Type        string  `yaml:"type"`
	ModelName   string  `yaml:"model_name"`
	BaseURL     string  `yaml:"url,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

type TTSConfig struct {
	Type       string `yaml:"type"`
	Voice      string `yaml:"voice,omitempty"`
	Format     string `yaml:"format,omitempty"`
	OutputDir  string `yaml:"output_dir"`
	DeleteFile bool   `yaml:"delete_file"`
}

type SelectedConfig struct {
	LLM string `yaml:"LLM"`
	TTS string `yaml:"TTS"`
}
