package extraction

import (
	"fmt"
	"os"
	"strconv"
)

// Strategy selects how split units are turned into one extraction.
type Strategy string

// Completion strategies. Paginate runs one call per unit and merges the
// partial results; Concatenate joins units into fewer, larger batched calls.
const (
	StrategyPaginate    Strategy = "paginate"
	StrategyConcatenate Strategy = "concatenate"
)

// ClassifyPolicy selects the input for the single classification pre-pass.
type ClassifyPolicy string

// Classification policies. Classification is resolved exactly once, before
// field extraction; the policy only decides what text the classifier sees.
const (
	// PolicyFirstUnit classifies from the first content unit.
	PolicyFirstUnit ClassifyPolicy = "first_unit"
	// PolicyPreview classifies from a truncated preview of the whole
	// document, independent of unit boundaries.
	PolicyPreview ClassifyPolicy = "preview"
)

// Config holds completion engine parameters.
type Config struct {
	Strategy            Strategy       `toml:"strategy"`
	ClassifyPolicy      ClassifyPolicy `toml:"classify_policy"`
	ConfidenceThreshold float64        `toml:"confidence_threshold"`
	MaxBatchTokens      int            `toml:"max_batch_tokens"`
	MaxWorkers          int            `toml:"max_workers"`
	RetryAttempts       int            `toml:"retry_attempts"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Strategy   string
	MaxWorkers string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Strategy != "" {
		c.Strategy = overlay.Strategy
	}
	if overlay.ClassifyPolicy != "" {
		c.ClassifyPolicy = overlay.ClassifyPolicy
	}
	if overlay.ConfidenceThreshold != 0 {
		c.ConfidenceThreshold = overlay.ConfidenceThreshold
	}
	if overlay.MaxBatchTokens != 0 {
		c.MaxBatchTokens = overlay.MaxBatchTokens
	}
	if overlay.MaxWorkers != 0 {
		c.MaxWorkers = overlay.MaxWorkers
	}
	if overlay.RetryAttempts != 0 {
		c.RetryAttempts = overlay.RetryAttempts
	}
}

func (c *Config) loadDefaults() {
	if c.Strategy == "" {
		c.Strategy = StrategyPaginate
	}
	if c.ClassifyPolicy == "" {
		c.ClassifyPolicy = PolicyFirstUnit
	}
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = 0.5
	}
	if c.MaxBatchTokens == 0 {
		c.MaxBatchTokens = 6144
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = 4
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 1
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Strategy != "" {
		if v := os.Getenv(env.Strategy); v != "" {
			c.Strategy = Strategy(v)
		}
	}
	if env.MaxWorkers != "" {
		if v := os.Getenv(env.MaxWorkers); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.MaxWorkers = n
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Strategy != StrategyPaginate && c.Strategy != StrategyConcatenate {
		return fmt.Errorf("unknown strategy: %q", c.Strategy)
	}
	if c.ClassifyPolicy != PolicyFirstUnit && c.ClassifyPolicy != PolicyPreview {
		return fmt.Errorf("unknown classify_policy: %q", c.ClassifyPolicy)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be within [0, 1]")
	}
	if c.MaxBatchTokens < 1 {
		return fmt.Errorf("max_batch_tokens must be positive")
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be positive")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must not be negative")
	}
	return nil
}
