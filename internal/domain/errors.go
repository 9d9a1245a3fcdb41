// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the entity already exists or was changed concurrently.
var ErrConflict = errors.New("conflict")

// ErrValidation indicates the caller supplied invalid input.
// Wrap it with a human-readable reason: fmt.Errorf("%w: reason", ErrValidation).
var ErrValidation = errors.New("validation failed")
