package domain

import "errors"

// Common domain errors
var (
	ErrInvalidDirection = errors.New("invalid direction")
	ErrUnknownPipeType  = errors.New("unknown pipe type")
	ErrUnknownModule    = errors.New("unknown module")
	ErrInvalidLayout    = errors.New("invalid layout")
	ErrSegmentOccupied  = errors.New("position already occupied")
	ErrSegmentNotFound  = errors.New("segment not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrTxnClosed        = errors.New("energy transaction already closed")
	ErrEnergyConflict   = errors.New("energy buffer changed during transaction")
	ErrConfigInvalid    = errors.New("invalid configuration")
)

// DomainError wraps errors with additional context.
//
//nolint:revive // Name is intentionally verbose to distinguish domain-layer errors
type DomainError struct {
	Err     error
	Code    string
	Message string
	Details map[string]any
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewLayoutError builds a DomainError tagged as a layout problem.
func NewLayoutError(message string, details map[string]any) *DomainError {
	return &DomainError{
		Err:     ErrInvalidLayout,
		Code:    "LAYOUT_INVALID",
		Message: message,
		Details: details,
	}
}
