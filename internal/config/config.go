// Package config provides configuration for the pairtalk server.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/xiaot623/pairtalk/internal/domain"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds the server configuration.
type Config struct {
	// Server settings
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Storage
	StoreBackend  string `env:"STORE_BACKEND" envDefault:"sqlite"`
	DatabaseURL   string `env:"DATABASE_URL" envDefault:"file:pairtalk.db?cache=shared&mode=rwc"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Files
	ChatLogDir string `env:"CHAT_LOG_DIR" envDefault:"chat_logs"`
	PDFDir     string `env:"PDF_DIR" envDefault:"pdf_exports"`
	ArchiveDir string `env:"ARCHIVE_DIR" envDefault:"pdf_archiv"`
	TopicsFile string `env:"TOPICS_FILE"`

	// Chat defaults, used until the teacher saves settings
	DefaultLanguage    string `env:"DEFAULT_LANGUAGE" envDefault:"de"`
	MaxWordsPerMessage int    `env:"MAX_WORDS_PER_MESSAGE" envDefault:"50"`
	MaxCharsPerRefresh int    `env:"MAX_CHARS_PER_REFRESH" envDefault:"500"`

	RefreshIntervalMs int    `env:"REFRESH_INTERVAL_MS" envDefault:"2000"`
	WatchTranscripts  bool   `env:"WATCH_TRANSCRIPTS" envDefault:"false"`
	ArchiveSchedule   string `env:"ARCHIVE_SCHEDULE"`

	// WebSocket settings
	PingIntervalMs   int     `env:"WS_PING_INTERVAL_MS" envDefault:"30000"`
	WriteTimeoutMs   int     `env:"WS_WRITE_TIMEOUT_MS" envDefault:"10000"`
	ReadTimeoutMs    int     `env:"WS_READ_TIMEOUT_MS" envDefault:"60000"`
	MaxMessageSize   int64   `env:"WS_MAX_MESSAGE_SIZE" envDefault:"65536"`
	WSMessagesPerSec float64 `env:"WS_MESSAGES_PER_SECOND" envDefault:"5"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional dotenv file and then the environment.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat %s: %w", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that env tags cannot express.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q", c.StoreBackend)
	}
	if !domain.ValidLanguage(c.DefaultLanguage) {
		return fmt.Errorf("invalid DEFAULT_LANGUAGE %q", c.DefaultLanguage)
	}
	if c.MaxWordsPerMessage <= 0 {
		return fmt.Errorf("MAX_WORDS_PER_MESSAGE must be positive")
	}
	if c.MaxCharsPerRefresh <= 0 {
		return fmt.Errorf("MAX_CHARS_PER_REFRESH must be positive")
	}
	if c.RefreshIntervalMs <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL_MS must be positive")
	}
	for name, v := range map[string]int{
		"WS_PING_INTERVAL_MS": c.PingIntervalMs,
		"WS_WRITE_TIMEOUT_MS": c.WriteTimeoutMs,
		"WS_READ_TIMEOUT_MS":  c.ReadTimeoutMs,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

// DefaultSettings are the teacher settings in effect before any are saved.
func (c *Config) DefaultSettings() domain.Settings {
	return domain.Settings{
		Language:           c.DefaultLanguage,
		MaxWordsPerMessage: c.MaxWordsPerMessage,
		MaxCharsPerRefresh: c.MaxCharsPerRefresh,
	}
}

func (c *Config) RefreshInterval() time.Duration { return ms(c.RefreshIntervalMs) }
func (c *Config) PingInterval() time.Duration    { return ms(c.PingIntervalMs) }
func (c *Config) WriteTimeout() time.Duration    { return ms(c.WriteTimeoutMs) }
func (c *Config) ReadTimeout() time.Duration     { return ms(c.ReadTimeoutMs) }

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
