package booking

import (
	"context"

	"github.com/google/uuid"

	"studyroom-backend/internal/model"
	"studyroom-backend/internal/store"
)

// Overlaps reports whether the half-open windows [s1,e1) and [s2,e2) intersect.
// Windows that only touch do not overlap.
func Overlaps(s1, e1, s2, e2 int) bool {
	return !(e1 <= s2 || s1 >= e2)
}

// FindConflict returns the first reservation in existing that holds an
// overlapping slot of the same room on the same date, or nil.
// The caller guarantees start < end.
func FindConflict(existing []model.Reservation, roomID int64, date string, start, end int, exclude *uuid.UUID) *model.Reservation {
	for i := range existing {
		r := &existing[i]
		if r.RoomID != roomID || r.Date != date || !r.Status.Active() {
			continue
		}
		if exclude != nil && r.ID == *exclude {
			continue
		}
		if Overlaps(start, end, r.StartMinute, r.EndMinute) {
			return r
		}
	}
	return nil
}

// HasConflict reports whether [start,end) on date collides with a pending or
// confirmed reservation of the room, ignoring exclude.
func (s *Service) HasConflict(ctx context.Context, roomID int64, date string, start, end int, exclude *uuid.UUID) (bool, error) {
	return hasConflict(ctx, s.store, roomID, date, start, end, exclude)
}

func hasConflict(ctx context.Context, st store.Store, roomID int64, date string, start, end int, exclude *uuid.UUID) (bool, error) {
	existing, err := st.ActiveReservations(ctx, roomID, date)
	if err != nil {
		return false, err
	}
	return FindConflict(existing, roomID, date, start, end, exclude) != nil, nil
}
