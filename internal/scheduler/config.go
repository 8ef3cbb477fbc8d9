package scheduler

import (
	"os"
	"strings"
	"time"
)

// Config controls the maintenance loop interval and per-job timeout.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: 5 * time.Minute,
		JobTimeout:  30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}

// ProvideConfig reads scheduler tuning from the environment.
func ProvideConfig() Config {
	cfg := Config{}
	if raw := strings.TrimSpace(os.Getenv("SCHEDULER_RUN_INTERVAL")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			cfg.RunInterval = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("SCHEDULER_JOB_TIMEOUT")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			cfg.JobTimeout = parsed
		}
	}
	return cfg.withDefaults()
}
