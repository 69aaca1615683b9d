package extraction

import "errors"

// Sentinel errors for extraction operations.
var (
	// ErrNoClassifications indicates extraction was attempted without any
	// configured document classifications.
	ErrNoClassifications = errors.New("no classifications configured")

	// ErrClassifyFailed indicates the classification pre-pass could not
	// produce a document type, so no contract governs the document.
	ErrClassifyFailed = errors.New("classification failed")

	// ErrUnknownType indicates the model returned a document type label that
	// matches no configured classification.
	ErrUnknownType = errors.New("unknown document type")
)
