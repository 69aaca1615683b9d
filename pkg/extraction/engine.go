package extraction

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docenthq/docent/pkg/document"
	"github.com/docenthq/docent/pkg/formatting"
	"github.com/docenthq/docent/pkg/provider"
	"github.com/docenthq/docent/pkg/splitter"
)

// Invoker issues a single generation request, selecting and failing over
// between providers as needed. Satisfied by *fallback.Controller.
type Invoker interface {
	Execute(ctx context.Context, req provider.Request) (*provider.Response, error)
}

// Engine turns a document's content units into one structured Result under
// the configured completion strategy.
type Engine struct {
	cfg     *Config
	invoker Invoker
	logger  *slog.Logger
}

// NewEngine creates a completion engine backed by the given invoker.
func NewEngine(cfg *Config, invoker Invoker, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		invoker: invoker,
		logger:  logger.With("system", "extraction"),
	}
}

// partial is one unit's (or batch's) extracted values pending merge.
type partial struct {
	index    int
	provider string
	values   map[string]any
}

// Extract classifies the document once, extracts fields from every content
// unit under the configured strategy, and merges the partials in unit-index
// order. Unit-level failures land in the result's failure manifest; a fully
// failed document still returns a result rather than an error. Only a
// context-level failure (cancellation, deadline) aborts with an error, and
// even then the partial result accompanies it.
func (e *Engine) Extract(
	ctx context.Context,
	doc *document.Document,
	src splitter.Source,
	classifications []Classification,
) (*Result, error) {
	if len(classifications) == 0 {
		return nil, ErrNoClassifications
	}

	result := newResult(doc.ID)

	first, err := src.Next(ctx)
	if errors.Is(err, splitter.ErrDone) {
		result.CompletedAt = time.Now()
		return result, nil
	}
	if err != nil {
		return result, err
	}

	cls, err := e.classify(ctx, doc, first, classifications)
	if err != nil {
		return e.classifyFailed(ctx, result, src, first, err)
	}

	result.DocumentType = cls.label
	result.Confidence = cls.confidence
	if cls.confidence < e.cfg.ConfidenceThreshold {
		result.Degraded = true
		e.logger.WarnContext(
			ctx, "classification confidence below threshold",
			"document_id", doc.ID,
			"type", cls.label,
			"confidence", cls.confidence,
		)
	}

	var (
		partials []partial
		failed   []int
		count    int
	)

	switch e.cfg.Strategy {
	case StrategyConcatenate:
		partials, failed, count, err = e.concatenate(ctx, src, first, cls.contract)
	default:
		partials, failed, count, err = e.paginate(ctx, src, first, cls.contract)
	}

	// Reassemble by original unit index before merging; completion order
	// must not influence first-writer-wins semantics.
	sort.Slice(partials, func(i, j int) bool { return partials[i].index < partials[j].index })
	for _, p := range partials {
		result.merge(cls.contract, p.index, p.provider, p.values)
	}

	sort.Ints(failed)
	result.FailedUnits = failed
	result.Units = count
	result.CompletedAt = time.Now()

	e.logger.InfoContext(
		ctx, "extraction complete",
		"document_id", doc.ID,
		"type", result.DocumentType,
		"units", count,
		"failed_units", len(failed),
		"degraded", result.Degraded,
	)

	return result, err
}

// classifyFailed finalizes a result when no contract could be resolved:
// every unit goes to the failure manifest since nothing was extracted.
func (e *Engine) classifyFailed(
	ctx context.Context,
	result *Result,
	src splitter.Source,
	first *document.ContentUnit,
	cause error,
) (*Result, error) {
	e.logger.ErrorContext(ctx, "classification failed", "document_id", result.DocumentID, "error", cause)

	units, err := collectRemaining(ctx, src, first)
	if err != nil {
		return result, err
	}

	for _, u := range units {
		result.FailedUnits = append(result.FailedUnits, u.Index)
	}
	result.Units = len(units)
	result.Degraded = true
	result.CompletedAt = time.Now()
	return result, nil
}

// paginate runs one extraction per unit with bounded concurrency. Units are
// pulled from the source as workers free up, preserving the lazy splitter's
// cooperative cadence and its short-circuit potential.
func (e *Engine) paginate(
	ctx context.Context,
	src splitter.Source,
	first *document.ContentUnit,
	contract *Contract,
) ([]partial, []int, int, error) {
	var (
		mu       sync.Mutex
		partials []partial
		failed   []int
	)

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.MaxWorkers)

	count := 0
	unit := first
	for {
		u := unit
		count++

		g.Go(func() error {
			values, providerName, err := e.extractUnit(ctx, u, contract)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.logger.WarnContext(ctx, "unit extraction failed", "unit", u.Index, "error", err)
				failed = append(failed, u.Index)
				return nil
			}
			partials = append(partials, partial{index: u.Index, provider: providerName, values: values})
			return nil
		})

		next, err := src.Next(ctx)
		if errors.Is(err, splitter.ErrDone) {
			break
		}
		if err != nil {
			g.Wait()
			return partials, failed, count, err
		}
		unit = next
	}

	g.Wait()
	return partials, failed, count, nil
}

// concatenate joins text units into batches under the combined token budget
// and runs one call per batch. Image units cannot be joined, so each forms
// its own batch. A failed batch fails every unit it contains.
func (e *Engine) concatenate(
	ctx context.Context,
	src splitter.Source,
	first *document.ContentUnit,
	contract *Contract,
) ([]partial, []int, int, error) {
	units, err := collectRemaining(ctx, src, first)
	if err != nil {
		return nil, nil, len(units), err
	}

	var (
		partials []partial
		failed   []int
	)

	for _, batch := range batchUnits(units, e.cfg.MaxBatchTokens) {
		values, providerName, err := e.extractBatch(ctx, batch, contract)
		if err != nil {
			e.logger.WarnContext(ctx, "batch extraction failed", "first_unit", batch[0].Index, "error", err)
			for _, u := range batch {
				failed = append(failed, u.Index)
			}
			continue
		}
		partials = append(partials, partial{index: batch[0].Index, provider: providerName, values: values})
	}

	return partials, failed, len(units), nil
}

func (e *Engine) extractUnit(ctx context.Context, u *document.ContentUnit, contract *Contract) (map[string]any, string, error) {
	req := provider.Request{}
	if u.Text != "" {
		req.Prompt = buildExtractPrompt(contract, u.Text)
	} else {
		req.Prompt = buildExtractPrompt(contract, "")
		req.Images = []string{base64.StdEncoding.EncodeToString(u.Image)}
	}

	return e.request(ctx, req)
}

func (e *Engine) extractBatch(ctx context.Context, batch []*document.ContentUnit, contract *Contract) (map[string]any, string, error) {
	req := provider.Request{}
	if batch[0].Text != "" {
		req.Prompt = buildExtractPrompt(contract, joinTexts(batch))
	} else {
		req.Prompt = buildExtractPrompt(contract, "")
		req.Images = []string{base64.StdEncoding.EncodeToString(batch[0].Image)}
	}

	return e.request(ctx, req)
}

func (e *Engine) request(ctx context.Context, req provider.Request) (map[string]any, string, error) {
	resp, err := e.execute(ctx, req)
	if err != nil {
		return nil, "", err
	}

	values, err := formatting.Parse[map[string]any](resp.Content)
	if err != nil {
		return nil, "", err
	}
	return values, resp.Provider, nil
}

// execute issues the request through the invoker, retrying the full
// provider chain up to the configured attempt budget.
func (e *Engine) execute(ctx context.Context, req provider.Request) (*provider.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= e.cfg.RetryAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := e.invoker.Execute(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func collectRemaining(ctx context.Context, src splitter.Source, first *document.ContentUnit) ([]*document.ContentUnit, error) {
	rest, err := splitter.Collect(ctx, src)
	if err != nil {
		return []*document.ContentUnit{first}, err
	}
	return append([]*document.ContentUnit{first}, rest...), nil
}

func batchUnits(units []*document.ContentUnit, maxTokens int) [][]*document.ContentUnit {
	var batches [][]*document.ContentUnit
	var current []*document.ContentUnit
	tokens := 0

	for _, u := range units {
		standalone := u.Image != nil

		if standalone || (len(current) > 0 && tokens+u.EstimatedTokens > maxTokens) {
			if len(current) > 0 {
				batches = append(batches, current)
				current = nil
				tokens = 0
			}
			if standalone {
				batches = append(batches, []*document.ContentUnit{u})
				continue
			}
		}
		current = append(current, u)
		tokens += u.EstimatedTokens
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

func joinTexts(batch []*document.ContentUnit) string {
	var b []byte
	for i, u := range batch {
		if i > 0 {
			b = append(b, "\n\n"...)
		}
		b = append(b, u.Text...)
	}
	return string(b)
}
