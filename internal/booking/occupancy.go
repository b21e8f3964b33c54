package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"studyroom-backend/internal/model"
	"studyroom-backend/internal/parse"
	"studyroom-backend/internal/store"
)

// CheckInInput identifies the reservation a user is physically starting.
type CheckInInput struct {
	ReservationID uuid.UUID
	RoomID        int64
	BuildingID    int64
	UserID        int64
	Notes         string
}

// CheckIn opens a sign-in for a reservation and bumps the room headcount in
// the same transaction.
func (s *Service) CheckIn(ctx context.Context, in CheckInInput) (*model.SignIn, error) {
	var (
		signIn *model.SignIn
		room   *model.Room
	)
	err := s.store.InTx(ctx, func(tx store.Store) error {
		r, err := tx.LockReservation(ctx, in.ReservationID)
		if err != nil {
			return lookupErr(err, ErrReservationNotFound, "reservation")
		}
		if r.UserID != in.UserID {
			return ErrNotReservationOwner
		}
		if r.RoomID != in.RoomID || r.BuildingID != in.BuildingID {
			return ErrReservationMismatch
		}
		if !r.Status.Active() {
			return fmt.Errorf("%w: cannot check in to a %s reservation", ErrValidation, r.Status)
		}

		active, err := tx.ActiveSignIn(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("failed to load sign-in: %w", err)
		}
		if active != nil {
			return ErrAlreadyCheckedIn
		}

		si := &model.SignIn{
			ReservationID: r.ID,
			UserID:        in.UserID,
			RoomID:        r.RoomID,
			BuildingID:    r.BuildingID,
			SignInTime:    s.clock.Now(),
			Status:        model.SignInActive,
			Notes:         in.Notes,
		}
		if err := tx.CreateSignIn(ctx, si); err != nil {
			// lost the race against a concurrent check-in
			if errors.Is(err, store.ErrDuplicate) {
				return ErrAlreadyCheckedIn
			}
			return writeErr(err, "sign-in")
		}

		room, err = tx.AdjustOccupancy(ctx, r.RoomID, 1)
		if err != nil {
			return lookupErr(err, ErrRoomNotFound, "room")
		}
		signIn = si
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("User %d checked in to room %d (reservation %s), occupancy now %d",
		signIn.UserID, room.ID, signIn.ReservationID, room.CurrentOccupancy)
	s.notify(*room)
	return signIn, nil
}

// CheckOut closes an active sign-in, releases the headcount and completes
// the reservation.
func (s *Service) CheckOut(ctx context.Context, signInID uuid.UUID, userID int64, notes string) (*model.SignIn, error) {
	var (
		signIn *model.SignIn
		room   *model.Room
	)
	err := s.store.InTx(ctx, func(tx store.Store) error {
		ref, err := tx.GetSignIn(ctx, signInID)
		if err != nil {
			return lookupErr(err, ErrSignInNotFound, "sign-in")
		}
		if ref.UserID != userID {
			return ErrNotSignInOwner
		}

		signIn, room, err = s.closeSignIn(ctx, tx, ref, model.SignInCompleted, s.clock.Now(), notes)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("User %d checked out of room %d after %d min, occupancy now %d",
		signIn.UserID, room.ID, *signIn.ActualDuration, room.CurrentOccupancy)
	s.notify(*room)
	return signIn, nil
}

// GetSignIn returns a sign-in visible to the caller.
func (s *Service) GetSignIn(ctx context.Context, id uuid.UUID, userID int64, role Role) (*model.SignIn, error) {
	si, err := s.store.GetSignIn(ctx, id)
	if err != nil {
		return nil, lookupErr(err, ErrSignInNotFound, "sign-in")
	}
	if si.UserID != userID && !role.Privileged() {
		return nil, ErrNotSignInOwner
	}
	return si, nil
}

// AbandonStale closes active sign-ins whose reservation ended more than grace
// ago. It returns how many were closed.
func (s *Service) AbandonStale(ctx context.Context, grace time.Duration) (int, error) {
	now := s.clock.Now()
	candidates, err := s.store.ListSignIns(ctx, store.SignInFilter{Status: model.SignInActive})
	if err != nil {
		return 0, fmt.Errorf("failed to list active sign-ins: %w", err)
	}

	var (
		closed int
		errs   []error
	)
	for _, c := range candidates {
		r, err := s.store.GetReservation(ctx, c.ReservationID)
		if err != nil {
			errs = append(errs, fmt.Errorf("sign-in %s: %w", c.ID, lookupErr(err, ErrReservationNotFound, "reservation")))
			continue
		}
		end, err := parse.DateTime(r.Date, r.EndMinute, s.cfg.Location)
		if err != nil {
			errs = append(errs, fmt.Errorf("sign-in %s: %w", c.ID, err))
			continue
		}
		if now.Before(end.Add(grace)) {
			continue
		}

		var room *model.Room
		err = s.store.InTx(ctx, func(tx store.Store) error {
			var err error
			_, room, err = s.closeSignIn(ctx, tx, &c, model.SignInAbandoned, now, "")
			// checked out since the listing
			if errors.Is(err, ErrSignInNotActive) {
				room = nil
				return nil
			}
			return err
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("sign-in %s: %w", c.ID, err))
			continue
		}
		if room != nil {
			closed++
			log.Printf("Sign-in %s abandoned, room %d occupancy now %d", c.ID, room.ID, room.CurrentOccupancy)
			s.notify(*room)
		}
	}
	return closed, errors.Join(errs...)
}

// ListSignIns returns the caller's sign-in records, optionally by status.
func (s *Service) ListSignIns(ctx context.Context, userID int64, status model.SignInStatus) ([]model.SignIn, error) {
	list, err := s.store.ListSignIns(ctx, store.SignInFilter{UserID: userID, Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list sign-ins: %w", err)
	}
	return list, nil
}

// closeSignIn ends the sign-in ref names and completes its reservation.
// Locks are taken reservation, sign-in, room, the same order CheckIn and
// cancellation use.
func (s *Service) closeSignIn(ctx context.Context, tx store.Store, ref *model.SignIn, status model.SignInStatus, out time.Time, notes string) (*model.SignIn, *model.Room, error) {
	r, err := tx.LockReservation(ctx, ref.ReservationID)
	if err != nil {
		return nil, nil, lookupErr(err, ErrReservationNotFound, "reservation")
	}
	si, err := tx.LockSignIn(ctx, ref.ID)
	if err != nil {
		return nil, nil, lookupErr(err, ErrSignInNotFound, "sign-in")
	}
	if si.Status != model.SignInActive {
		return nil, nil, ErrSignInNotActive
	}
	if notes != "" {
		si.Notes = notes
	}

	room, err := s.releaseSignIn(ctx, tx, si, status, out)
	if err != nil {
		return nil, nil, err
	}

	checkIn := si.SignInTime
	r.Status = model.ReservationCompleted
	r.CheckInTime = &checkIn
	r.CheckOutTime = &out
	if err := tx.SaveReservation(ctx, r); err != nil {
		return nil, nil, writeErr(err, "reservation")
	}
	return si, room, nil
}

// releaseSignIn stamps si as ended at out and gives its seat back. The caller
// holds the reservation lock.
func (s *Service) releaseSignIn(ctx context.Context, tx store.Store, si *model.SignIn, status model.SignInStatus, out time.Time) (*model.Room, error) {
	minutes := int(math.Round(out.Sub(si.SignInTime).Minutes()))
	if minutes < 0 {
		minutes = 0
	}
	si.SignOutTime = &out
	si.ActualDuration = &minutes
	si.Status = status
	if err := tx.SaveSignIn(ctx, si); err != nil {
		return nil, writeErr(err, "sign-in")
	}

	room, err := tx.AdjustOccupancy(ctx, si.RoomID, -1)
	if err != nil {
		return nil, lookupErr(err, ErrRoomNotFound, "room")
	}
	return room, nil
}
