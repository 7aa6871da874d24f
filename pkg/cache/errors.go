package cache

import "errors"

// Sentinel errors for caching operations.
var (
	// ErrInvalidBackend is returned for an unknown backend name.
	ErrInvalidBackend = errors.New("invalid cache backend")

	// ErrMissingURL is returned when the redis backend has no connection URL.
	ErrMissingURL = errors.New("redis url not set")
)
