package storage

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsertFailed wraps any failure writing a response bundle.
	ErrInsertFailed = errors.New("insert failed")
)
