package provider

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds connection and capability parameters for one model backend.
type Config struct {
	Name              string  `toml:"name"`
	Kind              Kind    `toml:"kind"`
	BaseURL           string  `toml:"base_url"`
	Model             string  `toml:"model"`
	Token             string  `toml:"token"`
	ContextTokens     int     `toml:"context_tokens"`
	Vision            bool    `toml:"vision"`
	Timeout           string  `toml:"timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	BaseURL string
	Model   string
	Token   string
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
	if overlay.Name != "" {
		c.Name = overlay.Name
	}
	if overlay.Kind != "" {
		c.Kind = overlay.Kind
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.ContextTokens != 0 {
		c.ContextTokens = overlay.ContextTokens
	}
	if overlay.Vision {
		c.Vision = true
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.RequestsPerSecond != 0 {
		c.RequestsPerSecond = overlay.RequestsPerSecond
	}
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Descriptor builds the registry descriptor for this configuration.
func (c *Config) Descriptor() Descriptor {
	return Descriptor{
		Name:          c.Name,
		Kind:          c.Kind,
		BaseURL:       c.BaseURL,
		Model:         c.Model,
		ContextTokens: c.ContextTokens,
		Vision:        c.Vision,
	}
}

func (c *Config) loadDefaults() {
	if c.Kind == "" {
		c.Kind = KindOllama
	}
	if c.BaseURL == "" && c.Kind == KindOllama {
		c.BaseURL = "http://localhost:11434"
	}
	if c.ContextTokens == 0 {
		c.ContextTokens = 8192
	}
	if c.Timeout == "" {
		c.Timeout = "120s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.BaseURL != "" {
		if v := os.Getenv(env.BaseURL); v != "" {
			c.BaseURL = v
		}
	}
	if env.Model != "" {
		if v := os.Getenv(env.Model); v != "" {
			c.Model = v
		}
	}
	if env.Token != "" {
		if v := os.Getenv(env.Token); v != "" {
			c.Token = v
		}
	}
}

func (c *Config) validate() error {
	if c.Name == "" {
		return fmt.Errorf("name required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base_url required")
	}
	if c.Model == "" {
		return fmt.Errorf("model required")
	}
	if c.ContextTokens < 0 {
		return fmt.Errorf("context_tokens must not be negative")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative: %s",
			strconv.FormatFloat(c.RequestsPerSecond, 'f', -1, 64))
	}
	return nil
}
