// Package config holds process-level settings sourced from environment
// variables. Business validation configuration (rulesets, adapter
// routing) lives in the YAML file this package only points at.
package config

import (
	"os"
	"runtime"
	"strconv"
	"time"
)

// Config holds service configuration.
type Config struct {
	// ConfigPath is the business configuration YAML file.
	ConfigPath string
	// LogLevel is DEBUG, INFO, WARN, or ERROR.
	LogLevel string
	// WatchConfig enables filesystem watching of ConfigPath with
	// automatic reload on change.
	WatchConfig bool
	// BatchParallel routes batch validations through the worker pool.
	BatchParallel bool
	// BatchWorkers is the worker pool size for parallel batches.
	BatchWorkers int
	// CoordinationURL is the coordination service base URL; empty
	// disables associated data fetching.
	CoordinationURL string
	// CoordinationTimeout bounds each coordination service request.
	CoordinationTimeout time.Duration
	// DereferenceSchemas enables fetching schema documents to resolve
	// declared identifiers to their canonical $id before routing.
	DereferenceSchemas bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	configPath := os.Getenv("VALIDLIB_CONFIG")
	if configPath == "" {
		configPath = "config/business-config.yaml"
	}

	logLevel := os.Getenv("VALIDLIB_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	workers := runtime.NumCPU()
	if raw := os.Getenv("VALIDLIB_BATCH_WORKERS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			workers = n
		}
	}

	timeout := 5 * time.Second
	if raw := os.Getenv("VALIDLIB_COORDINATION_TIMEOUT_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			timeout = time.Duration(ms) * time.Millisecond
		}
	}

	return &Config{
		ConfigPath:          configPath,
		LogLevel:            logLevel,
		WatchConfig:         os.Getenv("VALIDLIB_WATCH_CONFIG") == "true",
		BatchParallel:       os.Getenv("VALIDLIB_BATCH_PARALLELISM") == "true",
		BatchWorkers:        workers,
		CoordinationURL:     os.Getenv("VALIDLIB_COORDINATION_URL"),
		CoordinationTimeout: timeout,
		DereferenceSchemas:  os.Getenv("VALIDLIB_DEREF_SCHEMAS") == "true",
	}
}
