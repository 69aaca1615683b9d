// Package extraction drives model calls per content unit under a chosen
// completion strategy and assembles the partial outputs into one structured
// result.
package extraction

import (
	"fmt"
	"slices"
)

// FieldKind is the schema type of an extracted field.
type FieldKind string

// Supported field kinds. List-kind fields accumulate values across units;
// scalar kinds are first-writer-wins unless marked overwritable.
const (
	KindText   FieldKind = "text"
	KindNumber FieldKind = "number"
	KindDate   FieldKind = "date"
	KindList   FieldKind = "list"
)

var fieldKinds = []FieldKind{KindText, KindNumber, KindDate, KindList}

// FieldSpec declares one field of a document contract.
type FieldSpec struct {
	Name        string    `json:"name" toml:"name"`
	Kind        FieldKind `json:"kind" toml:"kind"`
	Description string    `json:"description" toml:"description"`
	Required    bool      `json:"required" toml:"required"`

	// Overwritable permits a later unit to replace a value populated by an
	// earlier unit. Off by default so a later page can never clobber a
	// correct earlier extraction.
	Overwritable bool `json:"overwritable" toml:"overwritable"`
}

// Contract is the schema an extraction must conform to for one document type.
type Contract struct {
	Name   string      `json:"name" toml:"name"`
	Fields []FieldSpec `json:"fields" toml:"fields"`
}

// Validate checks structural soundness: a name, at least one field, unique
// field names, and known kinds.
func (c *Contract) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("contract name required")
	}
	if len(c.Fields) == 0 {
		return fmt.Errorf("contract %s: at least one field required", c.Name)
	}

	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if f.Name == "" {
			return fmt.Errorf("contract %s: field name required", c.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("contract %s: duplicate field %q", c.Name, f.Name)
		}
		seen[f.Name] = true

		if !slices.Contains(fieldKinds, f.Kind) {
			return fmt.Errorf("contract %s: field %q has unknown kind %q", c.Name, f.Name, f.Kind)
		}
	}
	return nil
}

// Field returns the spec for the named field.
func (c *Contract) Field(name string) (FieldSpec, bool) {
	idx := slices.IndexFunc(c.Fields, func(f FieldSpec) bool { return f.Name == name })
	if idx == -1 {
		return FieldSpec{}, false
	}
	return c.Fields[idx], true
}

// Classification pairs a document type label with the contract governing
// its extraction.
type Classification struct {
	Name        string   `json:"name" toml:"name"`
	Description string   `json:"description" toml:"description"`
	Contract    Contract `json:"contract" toml:"contract"`
}
