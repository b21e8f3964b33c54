package booking

import (
	"context"
	"sync"
	"time"

	"studyroom-backend/internal/model"
	"studyroom-backend/internal/parse"
	"studyroom-backend/internal/store"
)

// Clock abstracts time so tests can pin it.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Role is the caller's role as resolved from the identity token.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
)

// Privileged reports whether the role may act on other users' records.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleStaff
}

// OccupancyListener is told about every committed change of a room's live state.
// Implementations must not block.
type OccupancyListener interface {
	RoomOccupancyChanged(room model.Room)
}

// Config carries campus rules.
type Config struct {
	Location  *time.Location
	OpenFrom  int // minute of day
	OpenUntil int // minute of day, exclusive
}

// Service implements the reservation lifecycle and the occupancy coordinator.
type Service struct {
	store store.Store
	clock Clock
	cfg   Config

	mu        sync.RWMutex
	listeners []OccupancyListener
}

// NewService creates a booking service. A zero OpenUntil means midnight.
func NewService(st store.Store, clock Clock, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.OpenUntil == 0 {
		cfg.OpenUntil = parse.MinutesPerDay
	}
	return &Service{store: st, clock: clock, cfg: cfg}
}

// AddListener registers l for occupancy changes.
func (s *Service) AddListener(l OccupancyListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Service) notify(room model.Room) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.listeners {
		l.RoomOccupancyChanged(room)
	}
}

// SetMaintenance toggles the manual maintenance flag of a room.
func (s *Service) SetMaintenance(ctx context.Context, roomID int64, role Role, on bool) (*model.Room, error) {
	if role != RoleAdmin {
		return nil, ErrAdminOnly
	}
	room, err := s.store.SetMaintenance(ctx, roomID, on)
	if err != nil {
		return nil, lookupErr(err, ErrRoomNotFound, "room")
	}
	s.notify(*room)
	return room, nil
}
