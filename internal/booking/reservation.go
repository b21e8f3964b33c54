package booking

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"studyroom-backend/internal/model"
	"studyroom-backend/internal/parse"
	"studyroom-backend/internal/store"
)

// CreateReservationInput is the request to book a room.
type CreateReservationInput struct {
	UserID         int64
	RoomID         int64
	BuildingID     int64
	Date           string // YYYY-MM-DD
	StartTime      string // HH:MM
	EndTime        string // HH:MM
	Purpose        model.Purpose
	NumberOfPeople int
	Notes          string
}

// ReservationPatch lists the fields UpdateReservation may change. Nil means unchanged.
type ReservationPatch struct {
	StartTime      *string
	EndTime        *string
	NumberOfPeople *int
	Notes          *string
	Purpose        *model.Purpose
	Status         *model.ReservationStatus
}

// CreateReservation books a room. The room row stays locked from the conflict
// check until the insert commits.
func (s *Service) CreateReservation(ctx context.Context, in CreateReservationInput) (*model.Reservation, error) {
	if in.UserID == 0 || in.RoomID == 0 || in.BuildingID == 0 || in.Date == "" || in.StartTime == "" || in.EndTime == "" {
		return nil, ErrMissingFields
	}
	date, err := parse.ParseDate(in.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	start, end, err := s.parseWindow(in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}
	purpose := in.Purpose
	if purpose == "" {
		purpose = model.PurposeStudying
	}
	if !purpose.Valid() {
		return nil, ErrInvalidPurpose
	}
	if in.NumberOfPeople < 1 {
		return nil, ErrInvalidPeople
	}

	var created *model.Reservation
	err = s.store.InTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetBuilding(ctx, in.BuildingID); err != nil {
			return lookupErr(err, ErrBuildingNotFound, "building")
		}
		room, err := tx.LockRoom(ctx, in.RoomID)
		if err != nil {
			return lookupErr(err, ErrRoomNotFound, "room")
		}
		if room.BuildingID != in.BuildingID {
			return ErrRoomNotInBuilding
		}
		if in.NumberOfPeople > room.Capacity {
			return fmt.Errorf("%w (capacity %d)", ErrCapacityExceeded, room.Capacity)
		}

		conflict, err := hasConflict(ctx, tx, room.ID, date, start, end, nil)
		if err != nil {
			return fmt.Errorf("failed to check conflicts: %w", err)
		}
		if conflict {
			return ErrTimeConflict
		}

		r := &model.Reservation{
			UserID:         in.UserID,
			RoomID:         room.ID,
			BuildingID:     in.BuildingID,
			Date:           date,
			StartMinute:    start,
			EndMinute:      end,
			Purpose:        purpose,
			NumberOfPeople: in.NumberOfPeople,
			Notes:          in.Notes,
			Status:         model.ReservationPending,
		}
		if err := tx.CreateReservation(ctx, r); err != nil {
			return writeErr(err, "reservation")
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Reservation %s created: room %d on %s %s-%s by user %d",
		created.ID, created.RoomID, created.Date,
		parse.FormatClock(created.StartMinute), parse.FormatClock(created.EndMinute), created.UserID)
	return created, nil
}

// UpdateReservation applies patch to a reservation owned by callerID.
//
// Only pending reservations may be edited, except that a patch confirming the
// reservation is accepted from any slot-holding status and may carry other
// field changes with it.
func (s *Service) UpdateReservation(ctx context.Context, id uuid.UUID, callerID int64, role Role, patch ReservationPatch) (*model.Reservation, error) {
	var (
		updated *model.Reservation
		freed   *model.Room
	)
	err := s.store.InTx(ctx, func(tx store.Store) error {
		r, err := tx.LockReservation(ctx, id)
		if err != nil {
			return lookupErr(err, ErrReservationNotFound, "reservation")
		}
		if r.UserID != callerID && role != RoleAdmin {
			return ErrNotOwner
		}

		confirming := false
		if patch.Status != nil {
			switch *patch.Status {
			case model.ReservationConfirmed:
				confirming = true
			case model.ReservationCancelled:
			default:
				return ErrIllegalStatus
			}
		}
		if r.Status != model.ReservationPending && !confirming {
			return ErrNotPending
		}
		if confirming && !r.Status.Active() {
			return fmt.Errorf("%w: cannot confirm a %s reservation", ErrValidation, r.Status)
		}
		cancelling := patch.Status != nil && *patch.Status == model.ReservationCancelled

		start, end := r.StartMinute, r.EndMinute
		if patch.StartTime != nil || patch.EndTime != nil {
			startRaw, endRaw := parse.FormatClock(start), parse.FormatClock(end)
			if patch.StartTime != nil {
				startRaw = *patch.StartTime
			}
			if patch.EndTime != nil {
				endRaw = *patch.EndTime
			}
			if start, end, err = s.parseWindow(startRaw, endRaw); err != nil {
				return err
			}
		}
		timeChanged := start != r.StartMinute || end != r.EndMinute
		peopleChanged := patch.NumberOfPeople != nil && *patch.NumberOfPeople != r.NumberOfPeople

		if (timeChanged || peopleChanged) && !cancelling {
			room, err := tx.LockRoom(ctx, r.RoomID)
			if err != nil {
				return lookupErr(err, ErrRoomNotFound, "room")
			}
			if peopleChanged {
				if *patch.NumberOfPeople < 1 {
					return ErrInvalidPeople
				}
				if *patch.NumberOfPeople > room.Capacity {
					return fmt.Errorf("%w (capacity %d)", ErrCapacityExceeded, room.Capacity)
				}
			}
			if timeChanged {
				conflict, err := hasConflict(ctx, tx, r.RoomID, r.Date, start, end, &r.ID)
				if err != nil {
					return fmt.Errorf("failed to check conflicts: %w", err)
				}
				if conflict {
					return ErrTimeConflict
				}
			}
		}

		r.StartMinute, r.EndMinute = start, end
		if patch.NumberOfPeople != nil && !cancelling {
			r.NumberOfPeople = *patch.NumberOfPeople
		}
		if patch.Notes != nil {
			r.Notes = *patch.Notes
		}
		if patch.Purpose != nil {
			if !patch.Purpose.Valid() {
				return ErrInvalidPurpose
			}
			r.Purpose = *patch.Purpose
		}

		switch {
		case confirming:
			r.Status = model.ReservationConfirmed
		case cancelling:
			if freed, err = s.markCancelled(ctx, tx, r, callerID, nil); err != nil {
				return err
			}
		}

		if err := tx.SaveReservation(ctx, r); err != nil {
			return writeErr(err, "reservation")
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Reservation %s updated by user %d (status %s)", updated.ID, callerID, updated.Status)
	if freed != nil {
		s.notify(*freed)
	}
	return updated, nil
}

// CancelReservation cancels a pending or confirmed reservation.
func (s *Service) CancelReservation(ctx context.Context, id uuid.UUID, callerID int64, role Role, reason string) (*model.Reservation, error) {
	var (
		cancelled *model.Reservation
		freed     *model.Room
	)
	err := s.store.InTx(ctx, func(tx store.Store) error {
		r, err := tx.LockReservation(ctx, id)
		if err != nil {
			return lookupErr(err, ErrReservationNotFound, "reservation")
		}
		if r.UserID != callerID && role != RoleAdmin {
			return ErrNotOwner
		}
		if !r.Status.Active() {
			return fmt.Errorf("%w (status %s)", ErrAlreadyTerminal, r.Status)
		}

		var why *string
		if reason != "" {
			why = &reason
		}
		if freed, err = s.markCancelled(ctx, tx, r, callerID, why); err != nil {
			return err
		}
		if err := tx.SaveReservation(ctx, r); err != nil {
			return writeErr(err, "reservation")
		}
		cancelled = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Reservation %s cancelled by user %d", cancelled.ID, callerID)
	if freed != nil {
		log.Printf("Room %d released by cancellation, occupancy now %d", freed.ID, freed.CurrentOccupancy)
		s.notify(*freed)
	}
	return cancelled, nil
}

// MarkNoShow closes a reservation whose holder never checked in.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID, role Role) (*model.Reservation, error) {
	if !role.Privileged() {
		return nil, ErrPrivilegedOnly
	}

	var marked *model.Reservation
	err := s.store.InTx(ctx, func(tx store.Store) error {
		r, err := tx.LockReservation(ctx, id)
		if err != nil {
			return lookupErr(err, ErrReservationNotFound, "reservation")
		}
		if !r.Status.Active() {
			return fmt.Errorf("%w (status %s)", ErrAlreadyTerminal, r.Status)
		}
		active, err := tx.ActiveSignIn(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("failed to load sign-in: %w", err)
		}
		if active != nil {
			return ErrCheckedIn
		}

		r.Status = model.ReservationNoShow
		if err := tx.SaveReservation(ctx, r); err != nil {
			return writeErr(err, "reservation")
		}
		marked = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Reservation %s marked as no-show", marked.ID)
	return marked, nil
}

// GetReservation returns a reservation visible to the caller.
func (s *Service) GetReservation(ctx context.Context, id uuid.UUID, callerID int64, role Role) (*model.Reservation, error) {
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrReservationNotFound, "reservation")
	}
	if r.UserID != callerID && !role.Privileged() {
		return nil, ErrNotReservationOwner
	}
	return r, nil
}

// ListReservations lists reservations. Non-privileged callers only see their own.
func (s *Service) ListReservations(ctx context.Context, callerID int64, role Role, f store.ReservationFilter) ([]model.Reservation, int64, error) {
	if !role.Privileged() {
		f.UserID = callerID
	}
	list, total, err := s.store.ListReservations(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reservations: %w", err)
	}
	return list, total, nil
}

// markCancelled stamps r as cancelled. A holder still checked in is signed
// out in the same transaction and the freed room is returned for notification.
func (s *Service) markCancelled(ctx context.Context, tx store.Store, r *model.Reservation, actor int64, reason *string) (*model.Room, error) {
	now := s.clock.Now()
	active, err := tx.ActiveSignIn(ctx, r.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sign-in: %w", err)
	}

	var room *model.Room
	if active != nil {
		si, err := tx.LockSignIn(ctx, active.ID)
		if err != nil {
			return nil, lookupErr(err, ErrSignInNotFound, "sign-in")
		}
		if room, err = s.releaseSignIn(ctx, tx, si, model.SignInCompleted, now); err != nil {
			return nil, err
		}
		checkIn := si.SignInTime
		r.CheckInTime = &checkIn
		r.CheckOutTime = &now
	}

	r.Status = model.ReservationCancelled
	r.CancellationReason = reason
	r.CancelledAt = &now
	r.CancelledBy = &actor
	return room, nil
}

// parseWindow parses a [start,end) pair and checks it against opening hours.
func (s *Service) parseWindow(startRaw, endRaw string) (int, int, error) {
	start, err := parse.ParseClock(startRaw)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: start time: %v", ErrValidation, err)
	}
	end, err := parse.ParseClock(endRaw)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: end time: %v", ErrValidation, err)
	}
	if end-start <= 0 {
		return 0, 0, ErrInvalidTimeRange
	}
	if start < s.cfg.OpenFrom || end > s.cfg.OpenUntil {
		return 0, 0, fmt.Errorf("%w (%s-%s)", ErrOutsideOpeningHours,
			parse.FormatClock(s.cfg.OpenFrom), parse.FormatClock(s.cfg.OpenUntil))
	}
	return start, end, nil
}
