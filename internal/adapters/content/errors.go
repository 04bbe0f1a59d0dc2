package content

import "errors"

var (
	// ErrNotFound is returned when a game id is unknown to the source.
	ErrNotFound = errors.New("content: game not found")
	// ErrUnsupportedLeague is returned for leagues the source cannot serve.
	ErrUnsupportedLeague = errors.New("content: unsupported league")
	// ErrUpstream wraps transport and decoding failures from a remote source.
	ErrUpstream = errors.New("content: upstream failure")
)
