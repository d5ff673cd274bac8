package domain

import "errors"

var (
	// ErrValidation marks caller input that is rejected before any write.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a lookup for an entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an operation rejected by a uniqueness or state guard.
	ErrConflict = errors.New("conflict")
)
