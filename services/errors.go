package services

import "errors"

// Sentinel errors returned by the engine. Handlers map them onto HTTP
// statuses; anything else is treated as an internal store failure.
var (
	ErrNotFound         = errors.New("not found")
	ErrNotAvailable     = errors.New("not available")
	ErrSoldOut          = errors.New("sold out")
	ErrInvalidInput     = errors.New("invalid input")
	ErrAlreadyCompleted = errors.New("already completed")
)
