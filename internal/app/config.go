package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	NotebookPath string // directory of cell files

	Watch    bool
	Debounce time.Duration

	BroadcastURL       string
	BroadcastNamespace string

	AnalysisCacheSize int
	HealthcheckPort   int
	LogFormat         string
	LogLevel          string
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.NotebookPath == "" {
		return nil, errors.New("NotebookPath is a required configuration field and cannot be empty")
	}
	if cfg.Debounce < 0 {
		return nil, fmt.Errorf("debounce must not be negative, got %s", cfg.Debounce)
	}
	if cfg.AnalysisCacheSize < 0 {
		return nil, fmt.Errorf("analysis cache size must not be negative, got %d", cfg.AnalysisCacheSize)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("healthcheck port out of range: %d", cfg.HealthcheckPort)
	}
	if cfg.HealthcheckPort > 0 && !cfg.Watch {
		return nil, errors.New("the health check server is only available in watch mode")
	}
	return &cfg, nil
}
