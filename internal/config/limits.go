package config

import (
	"fmt"
	"os"
	"time"

	"github.com/docenthq/docent/pkg/formatting"
)

const (
	EnvDocumentTimeout = "DOCENT_DOCUMENT_TIMEOUT"
	EnvMaxDocumentSize = "DOCENT_MAX_DOCUMENT_SIZE"
)

// LimitsConfig bounds whole-document processing.
type LimitsConfig struct {
	// DocumentTimeout is the processing ceiling for one document; beyond it
	// the run aborts with a partial result.
	DocumentTimeout string `toml:"document_timeout"`
	// MaxDocumentSize caps ingested file size, e.g. "50MB".
	MaxDocumentSize string `toml:"max_document_size"`
}

// Merge overwrites non-zero fields from overlay.
func (c *LimitsConfig) Merge(overlay *LimitsConfig) {
	if overlay.DocumentTimeout != "" {
		c.DocumentTimeout = overlay.DocumentTimeout
	}
	if overlay.MaxDocumentSize != "" {
		c.MaxDocumentSize = overlay.MaxDocumentSize
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *LimitsConfig) Finalize() error {
	if c.DocumentTimeout == "" {
		c.DocumentTimeout = "10m"
	}
	if c.MaxDocumentSize == "" {
		c.MaxDocumentSize = "50MB"
	}

	if v := os.Getenv(EnvDocumentTimeout); v != "" {
		c.DocumentTimeout = v
	}
	if v := os.Getenv(EnvMaxDocumentSize); v != "" {
		c.MaxDocumentSize = v
	}

	if _, err := time.ParseDuration(c.DocumentTimeout); err != nil {
		return fmt.Errorf("invalid document_timeout: %w", err)
	}
	if _, err := formatting.ParseBytes(c.MaxDocumentSize); err != nil {
		return fmt.Errorf("invalid max_document_size: %w", err)
	}
	return nil
}

// DocumentTimeoutDuration returns DocumentTimeout as a time.Duration.
func (c *LimitsConfig) DocumentTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.DocumentTimeout)
	return d
}

// MaxDocumentBytes returns MaxDocumentSize as a byte count.
func (c *LimitsConfig) MaxDocumentBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxDocumentSize)
	return n
}
