package engine

import (
	"errors"

	"github.com/okian/takraw/internal/domain/rally"
)

// Sentinel kinds for engine errors. Rally validation errors are re-exported
// so callers only need this package for errors.Is checks.
var (
	ErrStageMismatch        = rally.ErrStageMismatch
	ErrInvalidFailureReason = rally.ErrInvalidFailureReason
	ErrUnknownPlayType      = rally.ErrUnknownPlayType
	ErrNoPlayerSelected     = errors.New("no player selected")
	ErrSetAlreadyFinished   = errors.New("set already finished")
)
