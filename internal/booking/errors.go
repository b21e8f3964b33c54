package booking

import (
	"errors"
	"fmt"

	"studyroom-backend/internal/store"
)

// Error categories. Every error returned by Service wraps exactly one of
// them, or is an unexpected storage failure.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)

var (
	ErrBuildingNotFound    = fmt.Errorf("%w: building not found", ErrNotFound)
	ErrRoomNotFound        = fmt.Errorf("%w: room not found", ErrNotFound)
	ErrReservationNotFound = fmt.Errorf("%w: reservation not found", ErrNotFound)
	ErrSignInNotFound      = fmt.Errorf("%w: sign-in record not found", ErrNotFound)

	ErrNotOwner            = fmt.Errorf("%w: only the owner or an administrator may change this reservation", ErrForbidden)
	ErrNotSignInOwner      = fmt.Errorf("%w: sign-in record belongs to another user", ErrForbidden)
	ErrPrivilegedOnly      = fmt.Errorf("%w: requires an administrator or staff role", ErrForbidden)
	ErrAdminOnly           = fmt.Errorf("%w: requires an administrator role", ErrForbidden)
	ErrNotReservationOwner = fmt.Errorf("%w: reservation belongs to another user", ErrForbidden)

	ErrMissingFields       = fmt.Errorf("%w: userId, roomId, buildingId, date, startTime and endTime are required", ErrValidation)
	ErrInvalidTimeRange    = fmt.Errorf("%w: end time must be after start time", ErrValidation)
	ErrOutsideOpeningHours = fmt.Errorf("%w: reservation is outside opening hours", ErrValidation)
	ErrInvalidPurpose      = fmt.Errorf("%w: unknown purpose", ErrValidation)
	ErrInvalidPeople       = fmt.Errorf("%w: numberOfPeople must be at least 1", ErrValidation)
	ErrCapacityExceeded    = fmt.Errorf("%w: numberOfPeople exceeds room capacity", ErrValidation)
	ErrRoomNotInBuilding   = fmt.Errorf("%w: room does not belong to the building", ErrValidation)
	ErrIllegalStatus       = fmt.Errorf("%w: status may only be set to confirmed or cancelled", ErrValidation)
	ErrNotPending          = fmt.Errorf("%w: only pending reservations can be modified", ErrValidation)
	ErrAlreadyTerminal     = fmt.Errorf("%w: reservation is no longer pending or confirmed", ErrValidation)
	ErrCheckedIn           = fmt.Errorf("%w: reservation has an active check-in", ErrValidation)
	ErrAlreadyCheckedIn    = fmt.Errorf("%w: already checked in", ErrValidation)
	ErrReservationMismatch = fmt.Errorf("%w: reservation is for a different room or building", ErrValidation)
	ErrSignInNotActive     = fmt.Errorf("%w: sign-in record is not active", ErrValidation)

	ErrTimeConflict = fmt.Errorf("%w: time slot overlaps an existing reservation", ErrConflict)
)

// lookupErr maps a store miss to target and wraps anything else.
func lookupErr(err error, target error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return target
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// writeErr maps constraint violations raised by the database.
func writeErr(err error, what string) error {
	switch {
	case errors.Is(err, store.ErrOverlap):
		return ErrTimeConflict
	case errors.Is(err, store.ErrDuplicate):
		return fmt.Errorf("%w: duplicate %s", ErrConflict, what)
	}
	return fmt.Errorf("failed to save %s: %w", what, err)
}
