package store

import "errors"

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested row does not exist in the store.
	ErrNotFound = errors.New("variant set not found")

	// ErrCorruptEntry indicates that a stored row could not be decoded.
	// Load never returns it to callers; it is logged and the row is reported
	// as a miss, but implementations use it internally and tests assert on it.
	ErrCorruptEntry = errors.New("corrupt variant set entry")

	// ErrInvalidEntity is returned when a variant set fails validation
	// before being stored.
	ErrInvalidEntity = errors.New("invalid variant set")
)
