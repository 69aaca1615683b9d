// Package splitter decomposes documents into content units sized to a
// target model's context budget, under an eager or lazy strategy.
package splitter

import (
	"context"
	"errors"
	"fmt"

	"github.com/docenthq/docent/pkg/document"
)

// ErrDone signals that a source has emitted its final content unit.
var ErrDone = errors.New("no more content units")

// Strategy selects how units are produced.
type Strategy string

// Splitting strategies. Eager computes the full unit sequence up front;
// Lazy computes each unit only when the consumer pulls it, allowing
// short-circuit processing of large documents. Auto defers the choice to
// the caller, which resolves it against the target model's context window
// before constructing a source.
const (
	StrategyEager Strategy = "eager"
	StrategyLazy  Strategy = "lazy"
	StrategyAuto  Strategy = "auto"
)

// Source is a cooperative pull iterator over a document's content units.
// Next returns ErrDone once the document is fully consumed.
type Source interface {
	Next(ctx context.Context) (*document.ContentUnit, error)
}

// New builds a unit source for doc under the configured strategy. The
// strategy must be resolved to Eager or Lazy before construction.
func New(cfg Config, doc *document.Document) (Source, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Strategy == StrategyAuto {
		return nil, fmt.Errorf("strategy %q must be resolved before splitting", StrategyAuto)
	}

	producer, err := newProducer(cfg, doc)
	if err != nil {
		return nil, err
	}

	if cfg.Strategy == StrategyEager {
		return drain(producer)
	}
	return &lazy{producer: producer}, nil
}

// producer computes the next unit from remaining input on each call.
type producer interface {
	next() (*document.ContentUnit, error)
}

func newProducer(cfg Config, doc *document.Document) (producer, error) {
	switch doc.Format {
	case document.FormatPDF:
		return &paged{pages: doc.Pages}, nil
	case document.FormatImage:
		return &paged{pages: [][]byte{doc.Content}}, nil
	case document.FormatText:
		return newCutter(cfg, doc.Text()), nil
	default:
		return nil, fmt.Errorf("%w: %s", document.ErrUnsupportedFormat, doc.Format)
	}
}

// lazy emits one unit per pull, computing it on demand.
type lazy struct {
	producer producer
}

func (l *lazy) Next(ctx context.Context) (*document.ContentUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.producer.next()
}

// eager holds the complete precomputed sequence.
type eager struct {
	units []*document.ContentUnit
	pos   int
}

func drain(p producer) (*eager, error) {
	var units []*document.ContentUnit
	for {
		unit, err := p.next()
		if errors.Is(err, ErrDone) {
			break
		}
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return &eager{units: units}, nil
}

func (e *eager) Next(ctx context.Context) (*document.ContentUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.pos >= len(e.units) {
		return nil, ErrDone
	}
	unit := e.units[e.pos]
	e.pos++
	return unit, nil
}

// Collect drains a source into an ordered slice. Used by callers that need
// the complete sequence regardless of strategy.
func Collect(ctx context.Context, src Source) ([]*document.ContentUnit, error) {
	var units []*document.ContentUnit
	for {
		unit, err := src.Next(ctx)
		if errors.Is(err, ErrDone) {
			return units, nil
		}
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
}

// paged emits one unit per source page. Page boundaries are exact, so paged
// units never overlap.
type paged struct {
	pages [][]byte
	pos   int
}

func (p *paged) next() (*document.ContentUnit, error) {
	if p.pos >= len(p.pages) {
		return nil, ErrDone
	}

	page := p.pos + 1
	unit := &document.ContentUnit{
		Index:           p.pos,
		Image:           p.pages[p.pos],
		Range:           document.Range{Start: page, End: page},
		EstimatedTokens: document.EstimateTokens(string(p.pages[p.pos])),
	}
	p.pos++
	return unit, nil
}
