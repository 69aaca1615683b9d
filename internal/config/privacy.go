package config

import (
	"fmt"
	"os"
)

// MaskStage selects when PII masking runs relative to model calls.
type MaskStage string

// Masking stages. Pre masks unit text before it reaches a provider
// (protecting data in transit); Post masks extracted values in the final
// result (protecting data at rest).
const (
	MaskPre  MaskStage = "pre"
	MaskPost MaskStage = "post"
)

const (
	EnvPrivacyEnabled = "DOCENT_PRIVACY_ENABLED"
	EnvPrivacyStage   = "DOCENT_PRIVACY_STAGE"
)

// PrivacyConfig controls PII masking.
type PrivacyConfig struct {
	Enabled bool      `toml:"enabled"`
	Stage   MaskStage `toml:"stage"`
}

// Merge overwrites non-zero fields from overlay.
func (c *PrivacyConfig) Merge(overlay *PrivacyConfig) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Stage != "" {
		c.Stage = overlay.Stage
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PrivacyConfig) Finalize() error {
	if c.Stage == "" {
		c.Stage = MaskPre
	}

	if v := os.Getenv(EnvPrivacyEnabled); v != "" {
		c.Enabled = v == "true"
	}
	if v := os.Getenv(EnvPrivacyStage); v != "" {
		c.Stage = MaskStage(v)
	}

	if c.Stage != MaskPre && c.Stage != MaskPost {
		return fmt.Errorf("unknown privacy stage: %q", c.Stage)
	}
	return nil
}
