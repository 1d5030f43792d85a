package models

import "errors"

// Error kinds shared by the retrieval core.
// Use errors.Is() to classify errors in calling code.
var (
	// ErrValidation indicates bad caller input, rejected before any external call.
	ErrValidation = errors.New("validation error")

	// ErrRetrieval indicates the index call failed. Callers may present "no results"
	// after logging the cause.
	ErrRetrieval = errors.New("retrieval error")

	// ErrIndexNotReady indicates the video exists but its transcript index has not been built.
	// It is always wrapped together with ErrRetrieval.
	ErrIndexNotReady = errors.New("index not ready")

	// ErrInvariant indicates a programming-contract violation, such as a segment whose
	// end precedes its start.
	ErrInvariant = errors.New("invariant violation")

	// ErrProviderUnavailable indicates answer generation timed out, failed or was declined.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNotFound indicates the requested video or collection does not exist.
	ErrNotFound = errors.New("not found")
)
