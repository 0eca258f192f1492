package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a concurrent writer collided on the same
	// row; the caller may retry the whole transaction.
	ErrConflict = errors.New("conflict: row was modified by a concurrent transaction")

	// ErrUniqueViolation is returned when a uniqueness constraint fails
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrUnavailable is returned when the store cannot serve the request at all
	ErrUnavailable = errors.New("store unavailable")
)
