package kg

import "errors"

// Error kinds returned by the engine's public operations. Internal failures
// are wrapped with the appropriate sentinel so callers can classify them
// with errors.Is.
var (
	// ErrNodeNotFound is returned when a node id does not resolve.
	ErrNodeNotFound = errors.New("node not found")

	// ErrRelationshipNotFound is returned when a relationship id does not resolve.
	ErrRelationshipNotFound = errors.New("relationship not found")

	// ErrGraphOperation is returned for store-level failures without a more
	// specific kind.
	ErrGraphOperation = errors.New("graph operation failed")

	// ErrDocumentProcessing is returned when a document extraction result
	// cannot be ingested at all.
	ErrDocumentProcessing = errors.New("document processing failed")

	// ErrNLPQuery is returned when the NLP adapter cannot serve a
	// natural-language query.
	ErrNLPQuery = errors.New("nlp query failed")

	// ErrFileOperation is returned for export/import I/O failures.
	ErrFileOperation = errors.New("file operation failed")

	// ErrInvalidInput is returned for unsupported format names and other
	// malformed caller input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIDGeneration is returned when identifier generation runs out of
	// collision retries.
	ErrIDGeneration = errors.New("id generation failed")
)
