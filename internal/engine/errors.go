package engine

import "errors"

var (
	// ErrInputTooLarge means the document exceeds the configured text
	// limit. Maps to 413.
	ErrInputTooLarge = errors.New("input text too large")

	// ErrSessionMissing means an operation that requires an existing
	// session was called without a session id. Maps to 400.
	ErrSessionMissing = errors.New("session id required")

	// ErrSessionFull means the per-session binding cap was reached.
	// Maps to 422.
	ErrSessionFull = errors.New("session binding limit reached")

	// ErrBindingFailed means a binding could not be written atomically
	// and was rolled back. Maps to 502.
	ErrBindingFailed = errors.New("binding write failed")
)
