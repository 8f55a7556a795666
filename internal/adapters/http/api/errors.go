package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/takraw/internal/app"
	"github.com/okian/takraw/internal/adapters/repository"
	"github.com/okian/takraw/internal/domain/engine"
	"github.com/okian/takraw/internal/domain/rally"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// classify maps domain and service errors onto an HTTP status and a stable
// machine-readable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, rally.ErrUnknownPlayType),
		errors.Is(err, rally.ErrUnknownFailureReason):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrTeamNotFound),
		errors.Is(err, service.ErrPlayerNotFound),
		errors.Is(err, service.ErrMatchNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, engine.ErrSetAlreadyFinished):
		return http.StatusConflict, "set_finished"
	case errors.Is(err, engine.ErrStageMismatch):
		return http.StatusConflict, "stage_mismatch"
	case errors.Is(err, engine.ErrInvalidFailureReason):
		return http.StatusUnprocessableEntity, "invalid_failure_reason"
	case errors.Is(err, engine.ErrNoPlayerSelected):
		return http.StatusUnprocessableEntity, "no_player_selected"
	case errors.Is(err, service.ErrPlayerNotInMatch):
		return http.StatusUnprocessableEntity, "player_not_in_match"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// ErrorCode returns the machine-readable code the API reports for err.
func ErrorCode(err error) string {
	_, code := classify(err)
	return code
}
