package document

import "errors"

// Sentinel errors for document ingestion. Both are terminal for the
// affected document but never abort a batch.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrLoad              = errors.New("failed to load document")
)
