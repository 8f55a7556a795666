package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrNotStarted       = errors.New("service not started")
	ErrTeamNotFound     = errors.New("team not found")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrPlayerNotInMatch = errors.New("player does not play in this match")
	ErrMatchNotFound    = errors.New("match not found")
	ErrBackpressure     = errors.New("match executor is saturated")
	ErrInvalidInput     = errors.New("invalid input")
)
