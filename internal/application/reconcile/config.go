package reconcile

import (
	"time"

	"ephemera/pkg/retry"
)

type Config struct {
	Workers              int    `yaml:"workers"`
	ConsumerName         string `yaml:"consumer_name"`
	MaxAttempts          int    `yaml:"max_attempts"`
	RetryInitialInterval int64  `yaml:"retry_initial_interval_in_ms"`
	RetryMaxInterval     int64  `yaml:"retry_max_interval_in_ms"`
	BlobConcurrency      int    `yaml:"blob_concurrency"`
	ScanInterval         int64  `yaml:"scan_interval_in_second"`
	ScanGrace            int64  `yaml:"scan_grace_in_second"`
	DrainTimeout         int64  `yaml:"drain_timeout_in_second"`
}

func (c Config) Policy() retry.Policy {
	return retry.Policy{
		Attempts:        c.MaxAttempts,
		InitialInterval: time.Duration(c.RetryInitialInterval) * time.Millisecond,
		MaxInterval:     time.Duration(c.RetryMaxInterval) * time.Millisecond,
	}
}
