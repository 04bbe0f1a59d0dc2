package service

import "errors"

var (
	// ErrNotStarted is returned when an operation needs the persistence
	// pipeline before Start was called.
	ErrNotStarted = errors.New("service not started")

	// ErrStopped is returned by Start once the service has been stopped.
	ErrStopped = errors.New("service stopped")

	// ErrContentUnavailable wraps failures of the content collaborator.
	ErrContentUnavailable = errors.New("content service unavailable")
)
