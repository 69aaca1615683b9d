// Package fallback wraps the provider abstraction with ordered-preference
// selection and automatic failover.
package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/docenthq/docent/pkg/provider"
)

// Controller tries providers in preference order, advancing past
// recoverable failures. It is immutable after construction: Use derives a
// new controller rather than mutating the active set, so no state leaks
// between runs.
type Controller struct {
	providers []provider.Provider
	logger    *slog.Logger
}

// New creates a controller over the given preference order. The first
// provider is primary; the rest are fallbacks.
func New(logger *slog.Logger, providers ...provider.Provider) (*Controller, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	return &Controller{
		providers: providers,
		logger:    logger.With("system", "fallback"),
	}, nil
}

// Providers returns the names of the active preference order.
func (c *Controller) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Describe().Name
	}
	return names
}

// Use returns a derived controller restricted to the named providers, in
// the order given. Switching the active set is explicit; the receiver is
// untouched.
func (c *Controller) Use(names ...string) (*Controller, error) {
	selected := make([]provider.Provider, 0, len(names))
	for _, name := range names {
		idx := slices.IndexFunc(c.providers, func(p provider.Provider) bool {
			return p.Describe().Name == name
		})
		if idx == -1 {
			return nil, fmt.Errorf("%w: %q not registered", ErrNoProviders, name)
		}
		selected = append(selected, c.providers[idx])
	}
	return New(c.logger, selected...)
}

// Execute tries each provider in order. Recoverable failures (unavailable,
// overloaded, undecodable response) advance to the next provider; context
// cancellation and other terminal errors abort immediately. When the full
// order fails, the returned *ExhaustedError lists every reason.
func (c *Controller) Execute(ctx context.Context, req provider.Request) (*provider.Response, error) {
	var failures []Failure

	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := p.Describe().Name
		resp, err := p.Invoke(ctx, req)
		if err == nil {
			return resp, nil
		}

		if !provider.Recoverable(err) {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}

		c.logger.WarnContext(
			ctx, "provider failed, trying next",
			"provider", name,
			"error", err,
		)
		failures = append(failures, Failure{Provider: name, Err: err})
	}

	return nil, &ExhaustedError{Failures: failures}
}
