package model

import "errors"

// Sentinel errors shared across services and usecases. Wrap them with
// goerr.Wrap and match with errors.Is.
var (
	// ErrValidation marks a request rejected before any provider call
	ErrValidation = errors.New("validation failed")

	// ErrProvider marks an embedding or generation backend failure
	ErrProvider = errors.New("provider request failed")

	// ErrMalformedOutput marks structured model output that failed to parse
	// against the expected schema
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrNotFound marks a missing entity surfaced from a repository
	ErrNotFound = errors.New("not found")
)
