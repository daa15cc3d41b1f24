// Package services defines the business logic behind the read API.
// This file centralizes service-level error values so handlers can map them
// to HTTP results consistently.
package services

import "errors"

var (
	// ErrJobNotFound indicates that the requested job does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidFilter is returned when a list filter names an unknown source.
	ErrInvalidFilter = errors.New("unknown source filter")
)
