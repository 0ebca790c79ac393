// Package config defines the staging engine configuration snapshot and its
// loaders. Snapshots are plain values: the engine copies one at Setup time
// and later edits have no effect until the next Setup.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is a snapshot of staging policy and scheduling settings.
type Config struct {
	// Enabled is the global on/off switch. When false every request is
	// rejected before any I/O.
	Enabled bool `toml:"enabled"`

	// ExcludePatterns rejects matching paths. Glob syntax; patterns
	// containing a slash match the full path, others match the base name.
	ExcludePatterns []string `toml:"exclude_patterns"`

	// IncludePatterns, when non-empty, requires a path to match at least
	// one entry. An empty list passes all non-excluded files.
	IncludePatterns []string `toml:"include_patterns"`

	// MaxFileSizeBytes rejects files above this size. Zero means unlimited.
	MaxFileSizeBytes int64 `toml:"max_file_size_bytes" validate:"gte=0"`

	// RestrictToDirs, when non-empty, limits staging to files whose
	// repo-relative path starts with one of these prefixes.
	RestrictToDirs []string `toml:"restrict_to_dirs"`

	// DelayMs is the debounce delay before a staging attempt runs. Zero
	// runs the attempt immediately.
	DelayMs int `toml:"delay_ms" validate:"gte=0"`

	// CommandTimeoutMs bounds each git subprocess. Guards against a hung
	// subprocess pinning a path in flight forever.
	CommandTimeoutMs int `toml:"command_timeout_ms" validate:"gte=0"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Enabled:          true,
		DelayMs:          300,
		CommandTimeoutMs: 10000,
	}
}

// Delay returns the debounce delay as a duration.
func (c Config) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// CommandTimeout returns the subprocess timeout as a duration.
func (c Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutMs) * time.Millisecond
}

var validate = validator.New()

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
