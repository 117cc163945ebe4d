// Package config loads process configuration from the environment. A local
// .env file is read first when present.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable name.
const Prefix = "FUTUREYOU_"

type Config struct {
	DBPath   string `env:"DB_PATH"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogCalls bool   `env:"LOG_CALLS"`

	Worker WorkerConfig `envPrefix:"WORKER_"`
	Cache  CacheConfig  `envPrefix:"CACHE_"`
	Memory MemoryConfig `envPrefix:"MEMORY_"`
}

// WorkerConfig tunes the nightly learning run.
type WorkerConfig struct {
	UserDelayMs      int `env:"USER_DELAY_MS" envDefault:"100"`
	ActiveWindowDays int `env:"ACTIVE_WINDOW_DAYS" envDefault:"7"`
	LookbackDays     int `env:"LOOKBACK_DAYS" envDefault:"30"`
	MinEvents        int `env:"MIN_EVENTS" envDefault:"10"`
}

type CacheConfig struct {
	DeepModelTTL    time.Duration `env:"DEEP_MODEL_TTL" envDefault:"5m"`
	LearnedModelTTL time.Duration `env:"LEARNED_MODEL_TTL" envDefault:"24h"`
	Size            int           `env:"SIZE" envDefault:"1024"`
}

// MemoryConfig controls optional semantic memory. Provider is "ollama" or
// "genai".
type MemoryConfig struct {
	Enabled  bool    `env:"ENABLED"`
	Provider string  `env:"PROVIDER" envDefault:"ollama"`
	Model    string  `env:"MODEL" envDefault:"nomic-embed-text"`
	Endpoint string  `env:"ENDPOINT" envDefault:"http://localhost:11434"`
	APIKey   string  `env:"API_KEY"`
	MinScore float64 `env:"MIN_SCORE" envDefault:"0.5"`
}

// Load reads .env (if any) and parses the environment into a Config.
func Load() (Config, error) {
	LoadDotEnv()

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("finding home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".futureyou", "futureyou.db")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env from the working directory. A missing file is fine.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Debug("skipping .env", "error", err)
	}
}

func (c Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Memory.Provider {
	case "ollama", "genai":
	default:
		return fmt.Errorf("memory provider %q: want ollama or genai", c.Memory.Provider)
	}
	if c.Memory.MinScore < 0 || c.Memory.MinScore > 1 {
		return fmt.Errorf("memory min score %.2f outside 0-1", c.Memory.MinScore)
	}
	if c.Worker.UserDelayMs < 0 {
		return fmt.Errorf("worker user delay must be >= 0")
	}
	return nil
}

// ParseLevel maps a config string to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// NewLogger builds the process logger. Logs go to stderr as text.
func (c Config) NewLogger() *slog.Logger {
	level, _ := ParseLevel(c.LogLevel)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
