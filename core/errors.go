package core

import "errors"

var (
	// ErrInvalidInput marks a request rejected before any state change,
	// e.g. sheets < 1 or an unrecognised usage type.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates the requested user, department or log does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a failed PIN check.
	ErrUnauthorized = errors.New("unauthorized")
)
