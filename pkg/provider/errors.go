package provider

import "errors"

// Sentinel errors for provider operations. ErrUnavailable, ErrOverloaded,
// and ErrInvalidResponse are recoverable: callers fall through to the next
// provider in preference order.
var (
	ErrUnavailable     = errors.New("provider unavailable")
	ErrOverloaded      = errors.New("provider overloaded")
	ErrInvalidResponse = errors.New("invalid provider response")
	ErrUnknownKind     = errors.New("unknown provider kind")
)

// Recoverable reports whether err should trigger fallback to the next
// provider rather than aborting the request.
func Recoverable(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrOverloaded) ||
		errors.Is(err, ErrInvalidResponse)
}
