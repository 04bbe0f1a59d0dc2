package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrUnknownLeague = errors.New("unknown league")
)
