// Package privacy detects and masks personally-identifiable spans in text.
// Masking is a pure, stateless transform: it may run before text is sent to
// a remote provider (protecting data in transit) or on extracted results
// (protecting data at rest). Pattern-based detection carries an accepted
// residual risk of false negatives; a miss is not an error.
package privacy

import (
	"regexp"
	"sort"
	"strings"
)

// SpanType labels the category of a detected PII span.
type SpanType string

// Detected span categories.
const (
	SpanSSN        SpanType = "SSN"
	SpanCreditCard SpanType = "CREDIT_CARD"
	SpanEmail      SpanType = "EMAIL"
	SpanPhone      SpanType = "PHONE"
	SpanIPAddress  SpanType = "IP_ADDRESS"
)

// Span marks a detected PII occurrence by byte offsets in the original text.
type Span struct {
	Type  SpanType `json:"type"`
	Start int      `json:"start"`
	End   int      `json:"end"`
}

type detector struct {
	spanType SpanType
	pattern  *regexp.Regexp
	verify   func(match string) bool
}

// Detector order doubles as priority: when matches overlap, the earlier
// detector wins. SSN precedes phone so 123-45-6789 is never claimed by the
// looser phone pattern.
var detectors = []detector{
	{
		spanType: SpanSSN,
		pattern:  regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	},
	{
		spanType: SpanCreditCard,
		pattern:  regexp.MustCompile(`\b(?:\d{4}[ -]?){3}\d{4}\b`),
		verify:   luhnValid,
	},
	{
		spanType: SpanEmail,
		pattern:  regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	},
	{
		spanType: SpanPhone,
		pattern:  regexp.MustCompile(`\(?\d{3}\)?[-. ]\d{3}[-. ]\d{4}\b`),
	},
	{
		spanType: SpanIPAddress,
		pattern:  regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
	},
}

// Masker detects and redacts PII spans. The zero configuration masks every
// supported category.
type Masker struct {
	detectors []detector
}

// NewMasker creates a masker over all supported span categories.
func NewMasker() *Masker {
	return &Masker{detectors: detectors}
}

// Mask replaces every detected PII span with a [TYPE] placeholder and
// returns the detected spans with offsets into the original text. All
// non-PII text is preserved verbatim.
func (m *Masker) Mask(text string) (string, []Span) {
	var spans []Span
	for _, d := range m.detectors {
		for _, loc := range d.pattern.FindAllStringIndex(text, -1) {
			match := text[loc[0]:loc[1]]
			if d.verify != nil && !d.verify(match) {
				continue
			}
			spans = append(spans, Span{Type: d.spanType, Start: loc[0], End: loc[1]})
		}
	}

	spans = resolveOverlaps(spans)
	if len(spans) == 0 {
		return text, nil
	}

	var b strings.Builder
	last := 0
	for _, s := range spans {
		b.WriteString(text[last:s.Start])
		b.WriteString("[" + string(s.Type) + "]")
		last = s.End
	}
	b.WriteString(text[last:])

	return b.String(), spans
}

// resolveOverlaps sorts spans by start offset and drops any span that
// overlaps an already-accepted one. Input order within equal starts
// preserves detector priority.
func resolveOverlaps(spans []Span) []Span {
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Start < spans[j].Start
	})

	var out []Span
	end := -1
	for _, s := range spans {
		if s.Start < end {
			continue
		}
		out = append(out, s)
		end = s.End
	}
	return out
}

func luhnValid(number string) bool {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)

	if len(digits) < 13 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
