package scheduler

import (
	"time"

	"github.com/smallbiznis/lingoflow/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	Enabled     bool
	RunInterval time.Duration
	JobTimeout  time.Duration
	BatchSize   int
	// Repair recounts drifted counters instead of only reporting them.
	Repair bool
	// AddMissing lets a repair create allow-list rows for values already
	// priced without one.
	AddMissing bool
}

func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		RunInterval: 15 * time.Minute,
		JobTimeout:  5 * time.Minute,
		BatchSize:   100,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:     cfg.DriftAuditEnabled,
		RunInterval: time.Duration(cfg.DriftAuditIntervalSeconds) * time.Second,
		Repair:      cfg.DriftAuditRepair,
		AddMissing:  cfg.DriftAuditAddMissing,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	return c
}
