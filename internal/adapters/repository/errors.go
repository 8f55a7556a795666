package repository

import "errors"

// Sentinel errors for store operations.
var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidEntity = errors.New("invalid entity")
	ErrNotConfigured = errors.New("storage is not configured")
)
