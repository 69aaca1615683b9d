package fallback

import (
	"errors"
	"fmt"
	"strings"
)

// ErrExhausted indicates every provider in the preference order failed.
// Match with errors.Is; the concrete *ExhaustedError carries per-provider
// failure reasons.
var ErrExhausted = errors.New("all providers exhausted")

// ErrNoProviders indicates a controller was built with an empty provider set.
var ErrNoProviders = errors.New("no providers configured")

// Failure records why one provider in the chain was skipped.
type Failure struct {
	Provider string
	Err      error
}

// ExhaustedError reports that the full preference order was tried without
// success, carrying each provider's failure reason in order.
type ExhaustedError struct {
	Failures []Failure
}

func (e *ExhaustedError) Error() string {
	reasons := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		reasons[i] = fmt.Sprintf("%s: %v", f.Provider, f.Err)
	}
	return fmt.Sprintf("all providers exhausted: %s", strings.Join(reasons, "; "))
}

// Unwrap allows errors.Is(err, ErrExhausted) to match.
func (e *ExhaustedError) Unwrap() error {
	return ErrExhausted
}
