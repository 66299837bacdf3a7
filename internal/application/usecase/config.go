package usecase

import (
	"time"

	"ephemera/pkg/retry"
)

type Config struct {
	RequireDescription bool  `yaml:"require_description"`
	MaxMedia           int   `yaml:"max_media"`
	DefaultTTL         int64 `yaml:"default_ttl_in_second"`

	UploadAttempts       int   `yaml:"upload_attempts"`
	DeleteAttempts       int   `yaml:"delete_attempts"`
	RetryInitialInterval int64 `yaml:"retry_initial_interval_in_ms"`
	RetryMaxInterval     int64 `yaml:"retry_max_interval_in_ms"`
}

func (c Config) UploadPolicy() retry.Policy {
	return c.policy(c.UploadAttempts)
}

func (c Config) DeletePolicy() retry.Policy {
	return c.policy(c.DeleteAttempts)
}

func (c Config) policy(attempts int) retry.Policy {
	return retry.Policy{
		Attempts:        attempts,
		InitialInterval: time.Duration(c.RetryInitialInterval) * time.Millisecond,
		MaxInterval:     time.Duration(c.RetryMaxInterval) * time.Millisecond,
	}
}
