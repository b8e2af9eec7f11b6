package reconcile

import (
	"time"
)

// Config controls sweep batching and the scheduler's wait intervals.
type Config struct {
	BatchSize        int
	Cooldown         time.Duration
	BackoffInterval  time.Duration
	DisabledRecheck  time.Duration
	LockTTL          time.Duration
	LockKey          string
	PerCustomerLimit time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:        100,
		Cooldown:         time.Minute,
		BackoffInterval:  time.Hour,
		DisabledRecheck:  6 * time.Hour,
		LockTTL:          30 * time.Minute,
		LockKey:          "hexabill:reconcile:sweep",
		PerCustomerLimit: 30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.Cooldown <= 0 {
		c.Cooldown = defaults.Cooldown
	}
	if c.BackoffInterval <= 0 {
		c.BackoffInterval = defaults.BackoffInterval
	}
	if c.DisabledRecheck <= 0 {
		c.DisabledRecheck = defaults.DisabledRecheck
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.LockKey == "" {
		c.LockKey = defaults.LockKey
	}
	if c.PerCustomerLimit <= 0 {
		c.PerCustomerLimit = defaults.PerCustomerLimit
	}
	return c
}
