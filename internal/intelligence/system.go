// Package intelligence assembles the document pipeline: loader, splitter,
// privacy filter, completion engine, and provider fallback.
package intelligence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docenthq/docent/internal/config"
	"github.com/docenthq/docent/pkg/document"
	"github.com/docenthq/docent/pkg/extraction"
	"github.com/docenthq/docent/pkg/fallback"
	"github.com/docenthq/docent/pkg/formatting"
	"github.com/docenthq/docent/pkg/privacy"
	"github.com/docenthq/docent/pkg/provider"
	"github.com/docenthq/docent/pkg/splitter"
)

// Outcome pairs one document's extraction result with its terminal error,
// if any. Document-level failures are contained here so a batch never
// aborts on one bad document.
type Outcome struct {
	Result *extraction.Result
	Err    error
}

// System is the document-processing entry point.
type System interface {
	// Process loads, splits, and extracts one document under the configured
	// strategies and the document processing ceiling.
	Process(ctx context.Context, path string) (*extraction.Result, error)
	// ProcessMany processes documents in order, containing each document's
	// failure to its own outcome.
	ProcessMany(ctx context.Context, paths []string) map[string]Outcome
	// Benchmark invokes every provider with a diagnostic prompt and returns
	// a latency/outcome comparison table.
	Benchmark(ctx context.Context, prompt string) []fallback.BenchmarkResult
	// Providers returns the registered provider descriptors with their
	// latest health stamps.
	Providers() []provider.Descriptor
}

type system struct {
	cfg        *config.Config
	loader     document.Loader
	controller *fallback.Controller
	engine     *extraction.Engine
	masker     *privacy.Masker
	registry   *provider.Registry
	primary    provider.Descriptor
	logger     *slog.Logger
}

// New constructs the system from finalized configuration. Providers are
// built in preference order; the first is primary and anchors the
// auto splitting-strategy decision.
func New(cfg *config.Config, logger *slog.Logger) (System, error) {
	registry := provider.NewRegistry()

	byName := make(map[string]provider.Provider, len(cfg.Providers))
	for i := range cfg.Providers {
		p, err := provider.New(&cfg.Providers[i], registry, logger)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", cfg.Providers[i].Name, err)
		}
		byName[cfg.Providers[i].Name] = p
	}

	ordered := make([]provider.Provider, 0, len(cfg.Preference))
	for _, name := range cfg.Preference {
		ordered = append(ordered, byName[name])
	}

	controller, err := fallback.New(logger, ordered...)
	if err != nil {
		return nil, err
	}

	s := &system{
		cfg:        cfg,
		loader:     document.NewFileLoader(logger),
		controller: controller,
		engine:     extraction.NewEngine(&cfg.Completion, controller, logger),
		registry:   registry,
		primary:    ordered[0].Describe(),
		logger:     logger.With("system", "intelligence"),
	}
	if cfg.Privacy.Enabled {
		s.masker = privacy.NewMasker()
	}
	return s, nil
}

func (s *system) Process(ctx context.Context, path string) (*extraction.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Limits.DocumentTimeoutDuration())
	defer cancel()

	doc, err := s.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	if max := s.cfg.Limits.MaxDocumentBytes(); int64(len(doc.Content)) > max {
		return nil, fmt.Errorf("%w: %s exceeds %s",
			document.ErrLoad, formatting.FormatBytes(int64(len(doc.Content))), s.cfg.Limits.MaxDocumentSize)
	}

	var spans []privacy.Span
	if s.masker != nil && s.cfg.Privacy.Stage == config.MaskPre && doc.Format == document.FormatText {
		doc, spans = s.maskDocument(doc)
	}

	src, err := splitter.New(s.splitConfig(doc), doc)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Extract(ctx, doc, src, s.cfg.Classifications)
	if err != nil {
		return result, err
	}

	if s.masker != nil && s.cfg.Privacy.Stage == config.MaskPost {
		spans = s.maskResult(result)
	}
	result.MaskedSpans = spans

	return result, nil
}

func (s *system) ProcessMany(ctx context.Context, paths []string) map[string]Outcome {
	outcomes := make(map[string]Outcome, len(paths))

	for _, path := range paths {
		result, err := s.Process(ctx, path)
		if err != nil {
			s.logger.ErrorContext(ctx, "document processing failed", "path", path, "error", err)
		}
		outcomes[path] = Outcome{Result: result, Err: err}

		// A cancelled batch context would fail every remaining document the
		// same way; stop instead of churning.
		if ctx.Err() != nil {
			break
		}
	}
	return outcomes
}

func (s *system) Benchmark(ctx context.Context, prompt string) []fallback.BenchmarkResult {
	return s.controller.Benchmark(ctx, prompt)
}

func (s *system) Providers() []provider.Descriptor {
	return s.registry.List()
}

// splitConfig resolves the auto strategy: eager when the whole document
// comfortably fits the primary provider's context window, lazy otherwise.
func (s *system) splitConfig(doc *document.Document) splitter.Config {
	cfg := s.cfg.Splitter
	if cfg.Strategy != splitter.StrategyAuto {
		return cfg
	}

	if doc.Format == document.FormatText &&
		document.EstimateTokens(doc.Text()) <= s.primary.ContextTokens/2 {
		cfg.Strategy = splitter.StrategyEager
	} else {
		cfg.Strategy = splitter.StrategyLazy
	}
	return cfg
}

// maskDocument returns a masked copy of a text document. The original is
// left untouched; splitting operates on the masked copy so PII never
// reaches a provider.
func (s *system) maskDocument(doc *document.Document) (*document.Document, []privacy.Span) {
	masked, spans := s.masker.Mask(doc.Text())

	clone := *doc
	clone.Content = []byte(masked)
	return &clone, spans
}

// maskResult redacts extracted string values in place, protecting stored
// results when masking runs post-extraction. List fields hold []any of
// strings accumulated across units; each item is masked individually.
func (s *system) maskResult(result *extraction.Result) []privacy.Span {
	var spans []privacy.Span
	for name, fv := range result.Fields {
		switch v := fv.Value.(type) {
		case string:
			masked, found := s.masker.Mask(v)
			if len(found) == 0 {
				continue
			}
			fv.Value = masked
			result.Fields[name] = fv
			spans = append(spans, found...)
		case []any:
			changed := false
			for i, item := range v {
				text, ok := item.(string)
				if !ok {
					continue
				}
				masked, found := s.masker.Mask(text)
				if len(found) == 0 {
					continue
				}
				v[i] = masked
				changed = true
				spans = append(spans, found...)
			}
			if changed {
				fv.Value = v
				result.Fields[name] = fv
			}
		}
	}
	return spans
}
