package store

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint. The database constraint is the source of truth for
	// duplicate detection; callers must not rely on pre-checks alone.
	ErrDuplicate = errors.New("duplicate")
)
