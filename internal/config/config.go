// Package config loads runtime configuration from the environment,
// following the donor's flat-struct-plus-getEnv* pattern (RECLAW_* in
// place of the donor's bare names, per SPEC_FULL.md §10.3).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port     int
	DBPath   string
	LogLevel string
	LogFormat string

	VectorDir    string
	VectorDim    int
	EmbedProvider string
	EmbedModel    string
	EmbedURL      string

	MarkdownPaths       []string
	MemoryFile          string
	MaintenanceInterval time.Duration
	BootstrapDays       int
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:                envInt("RECLAW_PORT", 8741),
		DBPath:              envStr("RECLAW_DB_PATH", "/data/memory.db"),
		LogLevel:            envStr("RECLAW_LOG_LEVEL", "info"),
		LogFormat:           envStr("RECLAW_LOG_FORMAT", "json"),
		VectorDir:           envStr("RECLAW_VECTOR_DIR", "/data/vectors"),
		VectorDim:           envInt("RECLAW_VECTOR_DIM", 768),
		EmbedProvider:       envStr("RECLAW_EMBED_PROVIDER", "ollama"),
		EmbedModel:          envStr("RECLAW_EMBED_MODEL", "nomic-embed-text"),
		EmbedURL:            envStr("RECLAW_EMBED_URL", "http://localhost:11434"),
		MarkdownPaths:       envList("RECLAW_MARKDOWN_PATHS"),
		MemoryFile:          envStr("RECLAW_MEMORY_FILE", "MEMORY.md"),
		MaintenanceInterval: envDuration("RECLAW_MAINTENANCE_INTERVAL", time.Hour),
		BootstrapDays:       envInt("RECLAW_BOOTSTRAP_DAYS", 7),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("RECLAW_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("RECLAW_DB_PATH must not be empty")
	}
	if c.VectorDim < 1 {
		return fmt.Errorf("RECLAW_VECTOR_DIM must be positive, got %d", c.VectorDim)
	}
	switch c.EmbedProvider {
	case "ollama", "none":
	default:
		return fmt.Errorf("RECLAW_EMBED_PROVIDER must be 'ollama' or 'none', got %q", c.EmbedProvider)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
