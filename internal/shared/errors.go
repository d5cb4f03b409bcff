package shared

import "errors"

var (
	// ErrIdempotencyConflict indicates a duplicate key.
	ErrIdempotencyConflict = errors.New("idempotent request already processed")
	// ErrNotInitialised is returned by helpers used without a backing store.
	ErrNotInitialised = errors.New("shared: component not initialised")
)
