package rally

import "errors"

// Sentinel kinds for rally errors.
var (
	ErrStageMismatch        = errors.New("play not valid for current stage")
	ErrInvalidFailureReason = errors.New("failure reason not valid for play")
	ErrUnknownPlayType      = errors.New("unknown play type")
	ErrUnknownFailureReason = errors.New("unknown failure reason")
	ErrUnknownStage         = errors.New("unknown rally stage")
)
