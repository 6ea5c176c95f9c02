package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// DefaultMaxAttempts is the attempt budget used when none is configured.
const DefaultMaxAttempts = 3

// ErrInvalidConfig is returned by NewController and Config.Validate.
var ErrInvalidConfig = errors.New("invalid pipeline config")

// Config controls a Controller.
type Config struct {
	// MaxAttempts bounds the number of extract/validate cycles. Zero means DefaultMaxAttempts.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
	// DisableHistory drops the per-attempt history from the Outcome.
	DisableHistory bool `yaml:"disable_history" json:"disable_history"`
	// StageTimeout bounds a single Extract or Validate call. Zero disables it.
	StageTimeout time.Duration `yaml:"stage_timeout" json:"stage_timeout"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{MaxAttempts: DefaultMaxAttempts}
}

// Validate rejects values the controller cannot run with.
func (c Config) Validate() error {
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max_attempts must be positive, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if c.StageTimeout < 0 {
		return fmt.Errorf("%w: stage_timeout must not be negative, got %s", ErrInvalidConfig, c.StageTimeout)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}
