// Package config loads and finalizes the root Docent configuration from
// TOML files with environment overlays.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/docenthq/docent/pkg/extraction"
	"github.com/docenthq/docent/pkg/provider"
	"github.com/docenthq/docent/pkg/splitter"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvDocentEnv = "DOCENT_ENV"
)

var splitterEnv = &splitter.Env{
	Strategy:         "DOCENT_SPLIT_STRATEGY",
	UnitBudgetTokens: "DOCENT_SPLIT_UNIT_BUDGET",
	OverlapTokens:    "DOCENT_SPLIT_OVERLAP",
}

var completionEnv = &extraction.Env{
	Strategy:   "DOCENT_COMPLETION_STRATEGY",
	MaxWorkers: "DOCENT_COMPLETION_MAX_WORKERS",
}

// Config is the root configuration for the Docent engine. It is constructed
// once per process and read-only thereafter.
type Config struct {
	Providers       []provider.Config           `toml:"providers"`
	Preference      []string                    `toml:"preference"`
	Splitter        splitter.Config             `toml:"splitter"`
	Completion      extraction.Config           `toml:"completion"`
	Privacy         PrivacyConfig               `toml:"privacy"`
	Limits          LimitsConfig                `toml:"limits"`
	Classifications []extraction.Classification `toml:"classifications"`
}

// Env returns the DOCENT_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvDocentEnv); env != "" {
		return env
	}
	return "local"
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and
// environment variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
// Provider and classification lists replace wholesale rather than merging
// element-wise.
func (c *Config) Merge(overlay *Config) {
	if len(overlay.Providers) > 0 {
		c.Providers = overlay.Providers
	}
	if len(overlay.Preference) > 0 {
		c.Preference = overlay.Preference
	}
	if len(overlay.Classifications) > 0 {
		c.Classifications = overlay.Classifications
	}
	c.Splitter.Merge(&overlay.Splitter)
	c.Completion.Merge(&overlay.Completion)
	c.Privacy.Merge(&overlay.Privacy)
	c.Limits.Merge(&overlay.Limits)
}

// Finalize applies defaults, environment variable overrides, and validation
// across all sub-configs.
func (c *Config) Finalize() error {
	for i := range c.Providers {
		if err := c.Providers[i].Finalize(nil); err != nil {
			return fmt.Errorf("provider %d: %w", i, err)
		}
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.Splitter.Finalize(splitterEnv); err != nil {
		return fmt.Errorf("splitter: %w", err)
	}
	if err := c.Completion.Finalize(completionEnv); err != nil {
		return fmt.Errorf("completion: %w", err)
	}
	if err := c.Privacy.Finalize(); err != nil {
		return fmt.Errorf("privacy: %w", err)
	}
	if err := c.Limits.Finalize(); err != nil {
		return fmt.Errorf("limits: %w", err)
	}
	for i := range c.Classifications {
		if err := c.Classifications[i].Contract.Validate(); err != nil {
			return fmt.Errorf("classification %d: %w", i, err)
		}
	}
	return nil
}

func (c *Config) validateProviders() error {
	names := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if names[p.Name] {
			return fmt.Errorf("duplicate provider name: %q", p.Name)
		}
		names[p.Name] = true
	}

	if len(c.Preference) == 0 {
		for _, p := range c.Providers {
			c.Preference = append(c.Preference, p.Name)
		}
		return nil
	}

	for _, name := range c.Preference {
		if !names[name] {
			return fmt.Errorf("preference references unknown provider: %q", name)
		}
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvDocentEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
