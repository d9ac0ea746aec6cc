package sentinel

import "errors"

// Sentinel dependency errors. Storage drivers, channels and the backend
// client return these (optionally wrapped) so services can translate them
// into domain errors exactly once.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrTimeout      = errors.New("timeout")
	ErrRejected     = errors.New("rejected")
	ErrConflict     = errors.New("conflict")
	ErrClosed       = errors.New("closed")
)
