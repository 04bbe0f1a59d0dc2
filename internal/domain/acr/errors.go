package acr

import "errors"

var (
	// ErrMalformedResult is returned when a provider result carries no usable match.
	ErrMalformedResult = errors.New("acr: malformed provider result")
	// ErrUnresolved is returned when a match does not point at a known game.
	ErrUnresolved = errors.New("acr: match did not resolve to a game")
	// ErrProviderPanic wraps a panic recovered from a provider.
	ErrProviderPanic = errors.New("acr: provider panicked")
)
