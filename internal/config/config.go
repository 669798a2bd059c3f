// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a .env file, an optional YAML file and ATTRIBUTION_ env vars on top.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/dylanram/attribution/internal/domain/attribution"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory closed-deal queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ledger workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many deal ids are remembered for duplicate detection.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxPartnersLimit caps GET /partners?limit.
	MaxPartnersLimit int `koanf:"max_partners_limit"`

	// RoleWeights maps role names to Role Weighted model weights.
	RoleWeights map[string]float64 `koanf:"role_weights"`

	// U-shaped shares.
	FirstTouchShare float64 `koanf:"first_touch_share"`
	LastTouchShare  float64 `koanf:"last_touch_share"`
	MiddleShare     float64 `koanf:"middle_share"`

	// DecayOffsetDays is added to days-before-close in the Time Decay weight 1/(offset+days).
	DecayOffsetDays float64 `koanf:"decay_offset_days"`
}

// New creates a Config populated with defaults.
func New() *Config {
	w := attribution.DefaultWeights()
	roles := make(map[string]float64, len(w.Roles))
	for r, v := range w.Roles {
		roles[string(r)] = v
	}
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		QueueSize:        10_000,
		WorkerCount:      runtime.NumCPU(),
		DedupeSize:       100_000,
		MaxPartnersLimit: 100,
		RoleWeights:      roles,
		FirstTouchShare:  w.FirstTouch,
		LastTouchShare:   w.LastTouch,
		MiddleShare:      w.Middle,
		DecayOffsetDays:  w.DecayOffset,
	}
}

// Validate checks the service settings. Model weights are checked by Weights.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive, got %d", ErrInvalidConfig, c.DedupeSize)
	case c.MaxPartnersLimit <= 0:
		return fmt.Errorf("%w: max_partners_limit must be positive, got %d", ErrInvalidConfig, c.MaxPartnersLimit)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// Weights converts the model settings into engine weights.
func (c *Config) Weights() (attribution.Weights, error) {
	roles, err := attribution.ParseRoleWeights(c.RoleWeights)
	if err != nil {
		return attribution.Weights{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	w := attribution.Weights{
		Roles:       roles,
		FirstTouch:  c.FirstTouchShare,
		LastTouch:   c.LastTouchShare,
		Middle:      c.MiddleShare,
		DecayOffset: c.DecayOffsetDays,
	}
	if err := w.Validate(); err != nil {
		return attribution.Weights{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return w, nil
}
