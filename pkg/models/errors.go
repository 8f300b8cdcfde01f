package models

import "errors"

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a guarded write matched no rows, i.e.
	// the record changed underneath the caller.
	ErrConflict = errors.New("record changed concurrently")
)
