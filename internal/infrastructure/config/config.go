package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// FileEnv names the environment variable pointing at an optional TOML file
const FileEnv = "FRAMENAV_CONFIG"

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Navigation NavigationConfig `toml:"navigation"`
	Renderer   RendererConfig   `toml:"renderer"`
	Session    SessionConfig    `toml:"session"`
	Logging    LogConfig        `toml:"logging"`
	RateLimit  RateLimitConfig  `toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8000" toml:"port"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0" toml:"host"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" toml:"shutdown_timeout"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*" toml:"cors_origins"`
}

// NavigationConfig holds per-tab controller policy.
type NavigationConfig struct {
	MaxEntryCount             int  `envconfig:"NAV_MAX_ENTRIES" default:"50" toml:"max_entry_count"`
	SubframeHistoryNavigation bool `envconfig:"NAV_SUBFRAME_HISTORY" default:"false" toml:"subframe_history_navigation"`
	SubframeEntryTracking     bool `envconfig:"NAV_SUBFRAME_TRACKING" default:"true" toml:"subframe_entry_tracking"`
	EventBuffer               int  `envconfig:"NAV_EVENT_BUFFER" default:"64" toml:"event_buffer"`
	MaxTabs                   int  `envconfig:"NAV_MAX_TABS" default:"256" toml:"max_tabs"`
}

// RendererConfig holds loopback renderer fetch settings.
type RendererConfig struct {
	Timeout         time.Duration `envconfig:"RENDERER_TIMEOUT" default:"15s" toml:"timeout"`
	RetryMax        int           `envconfig:"RENDERER_RETRY_MAX" default:"2" toml:"retry_max"`
	FetchesPerSec   float64       `envconfig:"RENDERER_FETCH_RPS" default:"20" toml:"fetches_per_second"`
	FetchBurst      int           `envconfig:"RENDERER_FETCH_BURST" default:"40" toml:"fetch_burst"`
	MaxDocumentSize int64         `envconfig:"RENDERER_MAX_DOC_BYTES" default:"5242880" toml:"max_document_size"`
	UserAgent       string        `envconfig:"RENDERER_USER_AGENT" default:"framenav/1.0" toml:"user_agent"`
}

// SessionConfig holds snapshot store settings.
type SessionConfig struct {
	Dir              string `envconfig:"SESSION_DIR" default:"./sessions" toml:"dir"`
	CompressionLevel int    `envconfig:"SESSION_ZSTD_LEVEL" default:"3" toml:"compression_level"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" toml:"enabled"`
}

// Load reads the environment, then overlays the TOML file named by
// FRAMENAV_CONFIG if set. Keys present in the file win.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if path := os.Getenv(FileEnv); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// LoadFile overlays the TOML file at path onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Navigation: NavigationConfig{
			MaxEntryCount:         50,
			SubframeEntryTracking: true,
			EventBuffer:           64,
			MaxTabs:               256,
		},
		Renderer: RendererConfig{
			Timeout:         15 * time.Second,
			RetryMax:        2,
			FetchesPerSec:   20,
			FetchBurst:      40,
			MaxDocumentSize: 5 << 20,
			UserAgent:       "framenav/1.0",
		},
		Session: SessionConfig{
			Dir:              "./sessions",
			CompressionLevel: 3,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
