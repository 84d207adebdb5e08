// Package config loads kernel-memory settings from a YAML file, KERNEL_MEMORY_*
// environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rcliao/kernel-memory/internal/kv"
	"github.com/rcliao/kernel-memory/internal/memory"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// KERNEL_MEMORY_STORE_BACKEND.
const EnvPrefix = "KERNEL_MEMORY"

// Config represents the full kernel-memory configuration
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Log       LogConfig       `mapstructure:"log"`
}

// StoreConfig selects the persistent store backend
type StoreConfig struct {
	Backend string        `mapstructure:"backend"`
	Path    string        `mapstructure:"path"` // sqlite database or JSON file
	DSN     string        `mapstructure:"dsn"`  // postgres connection string
	Timeout time.Duration `mapstructure:"timeout"`
}

// MemoryConfig contains memory engine settings
type MemoryConfig struct {
	Namespace       string `mapstructure:"namespace"`
	TranscriptLimit int    `mapstructure:"transcript_limit"`
	DiscardEvicted  bool   `mapstructure:"discard_evicted"`
}

// EmbeddingConfig selects the fact vectorizer
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Dims     int    `mapstructure:"dims"`
}

// LLMConfig contains the chat responder settings
type LLMConfig struct {
	Provider       string        `mapstructure:"provider"`
	Model          string        `mapstructure:"model"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	SystemPrompt   string        `mapstructure:"system_prompt"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	MatchThreshold float64       `mapstructure:"match_threshold"`
}

// LogConfig controls the slog handler
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultDataDir is where local stores live unless configured otherwise.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".kernel-memory")
}

// SetDefaults registers defaults on v. Keys must be known to viper for
// AutomaticEnv to pick them up during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", kv.BackendSQLite)
	v.SetDefault("store.path", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.timeout", kv.DefaultTimeout)
	v.SetDefault("memory.namespace", "")
	v.SetDefault("memory.transcript_limit", memory.DefaultTranscriptLimit)
	v.SetDefault("memory.discard_evicted", false)
	v.SetDefault("embedding.provider", "letters")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.dims", 0)
	v.SetDefault("llm.provider", "offline")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.system_prompt", "")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.match_threshold", 0.9)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
}

// ConfigureEnv enables KERNEL_MEMORY_* overrides on v.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load loads configuration from v
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = kv.BackendSQLite
	}

	if cfg.Store.Path == "" {
		switch cfg.Store.Backend {
		case kv.BackendSQLite:
			cfg.Store.Path = filepath.Join(DefaultDataDir(), "memory.db")
		case kv.BackendFile:
			cfg.Store.Path = filepath.Join(DefaultDataDir(), "memory.json")
		}
	}

	if cfg.Store.Timeout == 0 {
		cfg.Store.Timeout = kv.DefaultTimeout
	}

	if cfg.Memory.TranscriptLimit == 0 {
		cfg.Memory.TranscriptLimit = memory.DefaultTranscriptLimit
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "letters"
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "offline"
	}

	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 30 * time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}

	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !kv.ValidBackends[c.Store.Backend] {
		return fmt.Errorf("invalid store backend: %s (must be sqlite, file, memory or postgres)", c.Store.Backend)
	}

	if c.Store.Backend == kv.BackendPostgres && c.Store.DSN == "" {
		return fmt.Errorf("store dsn is required for postgres")
	}

	if c.Store.Timeout < 0 {
		return fmt.Errorf("store timeout must not be negative")
	}

	if c.Memory.TranscriptLimit < 0 {
		return fmt.Errorf("transcript_limit must be positive")
	}

	if strings.Contains(c.Memory.Namespace, "/") {
		return fmt.Errorf("invalid namespace %q: must not contain '/'", c.Memory.Namespace)
	}

	validEmbedders := map[string]bool{"letters": true, "openai": true}
	if !validEmbedders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding provider: %s (must be letters or openai)", c.Embedding.Provider)
	}

	validLLMs := map[string]bool{"offline": true, "openai": true}
	if !validLLMs[c.LLM.Provider] {
		return fmt.Errorf("invalid llm provider: %s (must be offline or openai)", c.LLM.Provider)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Log.Format)
	}

	return nil
}
