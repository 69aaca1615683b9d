package splitter

import (
	"strings"

	"github.com/docenthq/docent/pkg/document"
)

// cutter produces text units one at a time. Units accumulate whole semantic
// blocks (paragraphs, table runs) up to the token budget; a block that alone
// exceeds the budget falls back to a budget-driven cut with a small overlap
// window so entities straddling the cut are not lost.
type cutter struct {
	text    string
	budget  int // bytes
	overlap int // bytes
	pos     int
	index   int
	carry   string
}

func newCutter(cfg Config, text string) *cutter {
	budget := cfg.UnitBudgetTokens * 4
	overlap := cfg.OverlapTokens * 4
	if overlap >= budget {
		overlap = budget / 4
	}
	return &cutter{
		text:    text,
		budget:  budget,
		overlap: overlap,
	}
}

func (c *cutter) next() (*document.ContentUnit, error) {
	if c.pos >= len(c.text) {
		return nil, ErrDone
	}

	start := c.pos
	end := start
	cut := false

	for end < len(c.text) {
		blockEnd := scanBlock(c.text, end)

		if blockEnd-start > c.budget {
			if end == start {
				// Single block exceeds the budget: cut inside it.
				end = c.cutWithin(start, blockEnd)
				cut = true
			}
			break
		}
		end = blockEnd
	}

	carry := c.carry
	unitText := carry + c.text[start:end]

	unit := &document.ContentUnit{
		Index:           c.index,
		Text:            unitText,
		Range:           document.Range{Start: start - len(carry), End: end},
		Overlap:         len(carry),
		EstimatedTokens: document.EstimateTokens(unitText),
	}

	if cut && c.overlap > 0 {
		tail := end - c.overlap
		if tail < start {
			tail = start
		}
		c.carry = c.text[tail:end]
	} else {
		c.carry = ""
	}

	c.pos = end
	c.index++
	return unit, nil
}

// cutWithin picks a cut point inside an oversized block, preferring the last
// whitespace before the budget boundary so words survive intact.
func (c *cutter) cutWithin(start, blockEnd int) int {
	limit := start + c.budget
	if limit >= blockEnd {
		return blockEnd
	}

	if idx := strings.LastIndexAny(c.text[start:limit], " \n\t"); idx > 0 {
		return start + idx + 1
	}
	return limit
}

// scanBlock returns the end offset of the semantic block starting at p,
// including its trailing separator so consecutive blocks partition the text
// without gaps. A run of table-like lines (containing '|' or a tab) is one
// block and is never cut between rows by accumulation.
func scanBlock(text string, p int) int {
	if p >= len(text) {
		return len(text)
	}

	end := p
	if tableLine(text, end) {
		for end < len(text) && tableLine(text, end) {
			end = lineEnd(text, end)
		}
	} else {
		for end < len(text) {
			le := lineEnd(text, end)
			if blankLine(text, end) {
				end = le
				break
			}
			end = le
			if end < len(text) && blankLine(text, end) {
				end = lineEnd(text, end)
				break
			}
		}
	}

	// Absorb any further blank lines into this block's trailing separator.
	for end < len(text) && blankLine(text, end) {
		end = lineEnd(text, end)
	}
	return end
}

func lineEnd(text string, p int) int {
	if idx := strings.IndexByte(text[p:], '\n'); idx >= 0 {
		return p + idx + 1
	}
	return len(text)
}

func blankLine(text string, p int) bool {
	le := lineEnd(text, p)
	return strings.TrimSpace(text[p:le]) == ""
}

func tableLine(text string, p int) bool {
	le := lineEnd(text, p)
	line := text[p:le]
	return strings.ContainsAny(line, "|\t") && strings.TrimSpace(line) != ""
}
