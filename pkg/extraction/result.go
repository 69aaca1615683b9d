package extraction

import (
	"time"

	"github.com/google/uuid"

	"github.com/docenthq/docent/pkg/privacy"
)

// FieldValue is one extracted value with per-unit, per-provider provenance.
// For list-kind fields Value is a []any accumulated across units.
type FieldValue struct {
	Value     any    `json:"value"`
	UnitIndex int    `json:"unit_index"`
	Provider  string `json:"provider"`
}

// Result is the structured output of one document extraction. It is built
// incrementally and finalized once every unit is processed or a terminal
// failure occurs. Failed units are listed in FailedUnits rather than being
// silently dropped.
type Result struct {
	DocumentID   uuid.UUID             `json:"document_id"`
	DocumentType string                `json:"document_type"`
	Confidence   float64               `json:"confidence"`
	Degraded     bool                  `json:"degraded"`
	Fields       map[string]FieldValue `json:"fields"`
	FailedUnits  []int                 `json:"failed_units,omitempty"`
	MaskedSpans  []privacy.Span        `json:"masked_spans,omitempty"`
	Units        int                   `json:"units"`
	CompletedAt  time.Time             `json:"completed_at"`
}

func newResult(documentID uuid.UUID) *Result {
	return &Result{
		DocumentID: documentID,
		Fields:     make(map[string]FieldValue),
	}
}

// merge folds one unit's extracted values into the result under the
// contract's merge policy: later units only fill previously-empty scalar
// fields (unless the field is overwritable) and append to list fields.
// Callers must merge in ascending unit index so first-writer-wins is
// independent of completion order.
func (r *Result) merge(contract *Contract, unitIndex int, providerName string, values map[string]any) {
	for _, spec := range contract.Fields {
		raw, ok := values[spec.Name]
		if !ok || empty(raw) {
			continue
		}

		if spec.Kind == KindList {
			r.appendList(spec.Name, unitIndex, providerName, raw)
			continue
		}

		if _, populated := r.Fields[spec.Name]; populated && !spec.Overwritable {
			continue
		}
		r.Fields[spec.Name] = FieldValue{
			Value:     raw,
			UnitIndex: unitIndex,
			Provider:  providerName,
		}
	}
}

func (r *Result) appendList(name string, unitIndex int, providerName string, raw any) {
	items, ok := raw.([]any)
	if !ok {
		items = []any{raw}
	}

	existing, populated := r.Fields[name]
	if !populated {
		r.Fields[name] = FieldValue{
			Value:     items,
			UnitIndex: unitIndex,
			Provider:  providerName,
		}
		return
	}

	current, _ := existing.Value.([]any)
	existing.Value = append(current, items...)
	r.Fields[name] = existing
}

func empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	default:
		return false
	}
}
