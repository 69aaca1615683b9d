package splitter

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds splitting strategy and budget parameters.
type Config struct {
	Strategy         Strategy `toml:"strategy"`
	UnitBudgetTokens int      `toml:"unit_budget_tokens"`
	OverlapTokens    int      `toml:"overlap_tokens"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Strategy         string
	UnitBudgetTokens string
	OverlapTokens    string
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
	if overlay.UnitBudgetTokens != 0 {
		c.UnitBudgetTokens = overlay.UnitBudgetTokens
	}
	if overlay.OverlapTokens != 0 {
		c.OverlapTokens = overlay.OverlapTokens
	}
}

func (c *Config) loadDefaults() {
	if c.Strategy == "" {
		c.Strategy = StrategyAuto
	}
	if c.UnitBudgetTokens == 0 {
		c.UnitBudgetTokens = 2048
	}
	if c.OverlapTokens == 0 {
		c.OverlapTokens = 64
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Strategy != "" {
		if v := os.Getenv(env.Strategy); v != "" {
			c.Strategy = Strategy(v)
		}
	}
	if env.UnitBudgetTokens != "" {
		if v := os.Getenv(env.UnitBudgetTokens); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.UnitBudgetTokens = n
			}
		}
	}
	if env.OverlapTokens != "" {
		if v := os.Getenv(env.OverlapTokens); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.OverlapTokens = n
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Strategy != StrategyEager && c.Strategy != StrategyLazy && c.Strategy != StrategyAuto {
		return fmt.Errorf("unknown strategy: %q", c.Strategy)
	}
	if c.UnitBudgetTokens < 1 {
		return fmt.Errorf("unit_budget_tokens must be positive")
	}
	if c.OverlapTokens < 0 {
		return fmt.Errorf("overlap_tokens must not be negative")
	}
	if c.OverlapTokens >= c.UnitBudgetTokens {
		return fmt.Errorf("overlap_tokens must be smaller than unit_budget_tokens")
	}
	return nil
}
