package domain

import "github.com/cockroachdb/errors"

// Sentinel errors forming the stable error taxonomy. Callers match with
// errors.Is; the HTTP layer maps each kind to a status code.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrAlreadyBooked   = errors.New("user already holds a booking or waiting spot")
	ErrPersistence     = errors.New("persistence failure")
	ErrInternal        = errors.New("internal error")
)
