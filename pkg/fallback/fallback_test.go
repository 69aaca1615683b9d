package fallback_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/docenthq/docent/pkg/fallback"
	"github.com/docenthq/docent/pkg/provider"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProvider scripts Invoke outcomes and counts calls.
type fakeProvider struct {
	name  string
	err   error
	calls int
}

func (f *fakeProvider) Invoke(ctx context.Context, req provider.Request) (*provider.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{Content: "response from " + f.name, Provider: f.name}, nil
}

func (f *fakeProvider) HealthCheck(ctx context.Context) bool { return f.err == nil }

func (f *fakeProvider) Describe() provider.Descriptor {
	return provider.Descriptor{Name: f.name}
}

func TestNew(t *testing.T) {
	t.Run("rejects empty provider set", func(t *testing.T) {
		_, err := fallback.New(discard())
		if !errors.Is(err, fallback.ErrNoProviders) {
			t.Errorf("error = %v, want ErrNoProviders", err)
		}
	})

	t.Run("reports preference order", func(t *testing.T) {
		c, err := fallback.New(discard(),
			&fakeProvider{name: "primary"},
			&fakeProvider{name: "secondary"},
		)
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		got := c.Providers()
		if len(got) != 2 || got[0] != "primary" || got[1] != "secondary" {
			t.Errorf("Providers = %v, want [primary secondary]", got)
		}
	})
}

func TestExecute(t *testing.T) {
	unavailable := fmt.Errorf("%w: connection refused", provider.ErrUnavailable)
	overloaded := fmt.Errorf("%w: status 429", provider.ErrOverloaded)

	t.Run("primary success never touches fallbacks", func(t *testing.T) {
		primary := &fakeProvider{name: "primary"}
		secondary := &fakeProvider{name: "secondary"}
		c, _ := fallback.New(discard(), primary, secondary)

		resp, err := c.Execute(context.Background(), provider.Request{Prompt: "hi"})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if resp.Provider != "primary" {
			t.Errorf("provider = %q, want primary", resp.Provider)
		}
		if secondary.calls != 0 {
			t.Errorf("secondary called %d times, want 0", secondary.calls)
		}
	})

	t.Run("kth provider succeeds after k-1 recoverable failures", func(t *testing.T) {
		providers := []provider.Provider{
			&fakeProvider{name: "a", err: unavailable},
			&fakeProvider{name: "b", err: overloaded},
			&fakeProvider{name: "c"},
			&fakeProvider{name: "d"},
		}
		c, _ := fallback.New(discard(), providers...)

		resp, err := c.Execute(context.Background(), provider.Request{Prompt: "hi"})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if resp.Provider != "c" {
			t.Errorf("provider = %q, want c", resp.Provider)
		}
		if providers[3].(*fakeProvider).calls != 0 {
			t.Error("provider after the first success was invoked")
		}
	})

	t.Run("exhaustion lists every provider's reason", func(t *testing.T) {
		c, _ := fallback.New(discard(),
			&fakeProvider{name: "a", err: unavailable},
			&fakeProvider{name: "b", err: overloaded},
			&fakeProvider{name: "c", err: fmt.Errorf("%w: not json", provider.ErrInvalidResponse)},
		)

		_, err := c.Execute(context.Background(), provider.Request{Prompt: "hi"})
		if !errors.Is(err, fallback.ErrExhausted) {
			t.Fatalf("error = %v, want ErrExhausted", err)
		}

		var exhausted *fallback.ExhaustedError
		if !errors.As(err, &exhausted) {
			t.Fatalf("error %T does not carry *ExhaustedError", err)
		}
		if len(exhausted.Failures) != 3 {
			t.Fatalf("failures = %d, want 3", len(exhausted.Failures))
		}
		for i, name := range []string{"a", "b", "c"} {
			if exhausted.Failures[i].Provider != name {
				t.Errorf("failure %d provider = %q, want %q", i, exhausted.Failures[i].Provider, name)
			}
		}
		for _, frag := range []string{"a", "b", "c"} {
			if !strings.Contains(err.Error(), frag) {
				t.Errorf("error text %q missing provider %q", err.Error(), frag)
			}
		}
	})

	t.Run("non-recoverable error aborts immediately", func(t *testing.T) {
		secondary := &fakeProvider{name: "secondary"}
		c, _ := fallback.New(discard(),
			&fakeProvider{name: "primary", err: errors.New("schema violation")},
			secondary,
		)

		_, err := c.Execute(context.Background(), provider.Request{Prompt: "hi"})
		if err == nil {
			t.Fatal("expected error")
		}
		if errors.Is(err, fallback.ErrExhausted) {
			t.Error("terminal failure reported as exhaustion")
		}
		if secondary.calls != 0 {
			t.Errorf("secondary called %d times after terminal failure, want 0", secondary.calls)
		}
	})

	t.Run("cancelled context aborts the walk", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c, _ := fallback.New(discard(), &fakeProvider{name: "primary"})
		_, err := c.Execute(ctx, provider.Request{Prompt: "hi"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestUse(t *testing.T) {
	unavailable := fmt.Errorf("%w: down", provider.ErrUnavailable)

	c, err := fallback.New(discard(),
		&fakeProvider{name: "a", err: unavailable},
		&fakeProvider{name: "b"},
		&fakeProvider{name: "c"},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	t.Run("derives reordered subset", func(t *testing.T) {
		derived, err := c.Use("c", "a")
		if err != nil {
			t.Fatalf("Use: %v", err)
		}

		got := derived.Providers()
		if len(got) != 2 || got[0] != "c" || got[1] != "a" {
			t.Errorf("Providers = %v, want [c a]", got)
		}

		resp, err := derived.Execute(context.Background(), provider.Request{Prompt: "hi"})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if resp.Provider != "c" {
			t.Errorf("provider = %q, want c", resp.Provider)
		}
	})

	t.Run("receiver untouched", func(t *testing.T) {
		if _, err := c.Use("b"); err != nil {
			t.Fatalf("Use: %v", err)
		}
		got := c.Providers()
		if len(got) != 3 || got[0] != "a" {
			t.Errorf("original order = %v, want [a b c]", got)
		}
	})

	t.Run("unknown name rejected", func(t *testing.T) {
		if _, err := c.Use("nope"); err == nil {
			t.Error("expected error for unknown provider")
		}
	})
}

func TestBenchmark(t *testing.T) {
	c, err := fallback.New(discard(),
		&fakeProvider{name: "fast"},
		&fakeProvider{name: "down", err: fmt.Errorf("%w: refused", provider.ErrUnavailable)},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	results := c.Benchmark(context.Background(), "ping")
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	// Results hold preference order regardless of completion order.
	if results[0].Provider != "fast" || results[1].Provider != "down" {
		t.Fatalf("order = [%s %s], want [fast down]", results[0].Provider, results[1].Provider)
	}
	if !results[0].OK || results[0].Length == 0 {
		t.Errorf("fast result = %+v, want ok with content length", results[0])
	}
	if results[1].OK || results[1].Error == "" {
		t.Errorf("down result = %+v, want failure with reason", results[1])
	}
}
