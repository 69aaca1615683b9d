package extraction

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/docenthq/docent/pkg/document"
	"github.com/docenthq/docent/pkg/formatting"
	"github.com/docenthq/docent/pkg/provider"
)

type classifyResponse struct {
	DocumentType string  `json:"document_type"`
	Confidence   float64 `json:"confidence"`
}

type classification struct {
	label      string
	confidence float64
	contract   *Contract
}

// classify resolves the document type exactly once before field extraction.
// The policy picks the classifier input: the first content unit, or a
// truncated whole-document preview. The resolved type never changes
// mid-document regardless of what later units suggest.
func (e *Engine) classify(
	ctx context.Context,
	doc *document.Document,
	first *document.ContentUnit,
	classifications []Classification,
) (*classification, error) {
	var req provider.Request

	switch {
	case e.cfg.ClassifyPolicy == PolicyPreview && doc.Format == document.FormatText:
		req.Prompt = buildClassifyPrompt(classifications, preview(doc.Text()))
	case first.Text != "":
		req.Prompt = buildClassifyPrompt(classifications, first.Text)
	default:
		req.Prompt = buildClassifyPrompt(classifications, "")
		req.Images = []string{base64.StdEncoding.EncodeToString(first.Image)}
	}

	resp, err := e.execute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassifyFailed, err)
	}

	parsed, err := formatting.Parse[classifyResponse](resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassifyFailed, err)
	}

	contract, err := matchContract(classifications, parsed.DocumentType)
	if err != nil {
		return nil, err
	}

	return &classification{
		label:      contract.Name,
		confidence: parsed.Confidence,
		contract:   contract,
	}, nil
}

func matchContract(classifications []Classification, label string) (*Contract, error) {
	for i := range classifications {
		if strings.EqualFold(classifications[i].Name, label) {
			return &classifications[i].Contract, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, label)
}

const previewBytes = 2048

func preview(text string) string {
	if len(text) <= previewBytes {
		return text
	}
	return text[:previewBytes]
}
