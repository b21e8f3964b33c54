package booking

import (
	"context"
	"fmt"
	"sort"

	"studyroom-backend/internal/model"
	"studyroom-backend/internal/parse"
)

// Slot is a half-open [Start,End) window in minutes of day.
type Slot struct {
	Start int
	End   int
}

// RoomAvailability is a room's booking picture for one date.
type RoomAvailability struct {
	Room   model.Room
	Date   string
	Booked []Slot
	Free   []Slot
}

// FreeSlots returns the gaps between busy windows inside [openFrom,openUntil).
func FreeSlots(busy []Slot, openFrom, openUntil int) []Slot {
	sorted := make([]Slot, len(busy))
	copy(sorted, busy)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	free := []Slot{}
	cursor := openFrom
	for _, b := range sorted {
		if b.End <= cursor {
			continue
		}
		if b.Start >= openUntil {
			break
		}
		if b.Start > cursor {
			free = append(free, Slot{Start: cursor, End: b.Start})
		}
		cursor = b.End
	}
	if cursor < openUntil {
		free = append(free, Slot{Start: cursor, End: openUntil})
	}
	return free
}

// Availability lists booked and free windows of a room on a date.
func (s *Service) Availability(ctx context.Context, roomID int64, rawDate string) (*RoomAvailability, error) {
	date, err := parse.ParseDate(rawDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, lookupErr(err, ErrRoomNotFound, "room")
	}
	reservations, err := s.store.ActiveReservations(ctx, roomID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}

	booked := make([]Slot, 0, len(reservations))
	for _, r := range reservations {
		booked = append(booked, Slot{Start: r.StartMinute, End: r.EndMinute})
	}
	return &RoomAvailability{
		Room:   *room,
		Date:   date,
		Booked: booked,
		Free:   FreeSlots(booked, s.cfg.OpenFrom, s.cfg.OpenUntil),
	}, nil
}
