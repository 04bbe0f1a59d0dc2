package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("pulse entry not found")
	ErrInvalidLimit = errors.New("invalid history limit")
	ErrInvalidEntry = errors.New("invalid pulse entry")
	ErrClosed       = errors.New("store closed")
)
