package apperrors

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput is returned for malformed commands (unknown action, bad enum value, empty field).
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidReference is returned when a cross-entity reference violates ownership,
	// e.g. a time slot that does not belong to the match target.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrInconsistentTime is returned when a proposed time differs from the referenced slot's start.
	ErrInconsistentTime = errors.New("proposed time does not match time slot start")

	// ErrInvalidState is returned when a transition is attempted from a status that does not allow it.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrSlotConflict is returned when a time slot could not be reserved.
	ErrSlotConflict = errors.New("time slot conflict")
)
