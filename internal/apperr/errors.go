// Package apperr defines sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrDuplicateName = errors.New("route name already taken")
	ErrCooldown      = errors.New("publish cooldown active")
	ErrUnreachable   = errors.New("remote unreachable")
	ErrInvalid       = errors.New("invalid input")
)
