package fallback

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docenthq/docent/pkg/provider"
)

// BenchmarkResult records one provider's outcome for a benchmark prompt.
type BenchmarkResult struct {
	Provider string        `json:"provider"`
	OK       bool          `json:"ok"`
	Latency  time.Duration `json:"latency"`
	Length   int           `json:"length"`
	Error    string        `json:"error,omitempty"`
}

// Benchmark invokes every provider in the active set with the given prompt
// and returns a comparison table in preference order. It is a diagnostic
// operation, never part of the extraction hot path; failures are recorded,
// not propagated.
func (c *Controller) Benchmark(ctx context.Context, prompt string) []BenchmarkResult {
	results := make([]BenchmarkResult, len(c.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range c.providers {
		g.Go(func() error {
			name := p.Describe().Name
			start := time.Now()

			resp, err := p.Invoke(gctx, provider.Request{Prompt: prompt, MaxTokens: 100})
			result := BenchmarkResult{
				Provider: name,
				Latency:  time.Since(start),
			}
			if err != nil {
				result.Error = err.Error()
			} else {
				result.OK = true
				result.Length = len(resp.Content)
			}

			results[i] = result
			return nil
		})
	}
	g.Wait()

	return results
}
