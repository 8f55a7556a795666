package simulator

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig    = errors.New("invalid simulator config")
	ErrInvalidScenario  = errors.New("invalid scenario")
	ErrUnexpectedResult = errors.New("unexpected step result")
	ErrUnknownOp        = errors.New("unknown op")
)

// APIError is a non-2xx response from the scoring API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
}
