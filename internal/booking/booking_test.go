package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"studyroom-backend/internal/db"
	"studyroom-backend/internal/model"
	"studyroom-backend/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingListener struct {
	mu    sync.Mutex
	rooms []model.Room
}

func (l *recordingListener) RoomOccupancyChanged(room model.Room) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rooms = append(l.rooms, room)
}

func (l *recordingListener) Events() []model.Room {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Room(nil), l.rooms...)
}

type fixture struct {
	svc      *Service
	store    store.Store
	clock    *fakeClock
	listener *recordingListener

	libraryID int64
	scienceID int64
	smallRoom model.Room // capacity 4, library
	bigRoom   model.Room // capacity 6, library
	labRoom   model.Room // capacity 8, science hall
}

const testDate = "2026-03-02"

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	gormDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB, false))

	st := store.NewGormStore(gormDB)
	require.NoError(t, st.UpsertCatalog(ctx, []store.CatalogBuilding{
		{Name: "Main Library", Code: "LIB", Rooms: []store.CatalogRoom{
			{Name: "L-201", Floor: 2, Capacity: 4},
			{Name: "L-202", Floor: 2, Capacity: 6},
		}},
		{Name: "Science Hall", Code: "SCI", Rooms: []store.CatalogRoom{
			{Name: "S-110", Floor: 1, Capacity: 8},
		}},
	}))

	buildings, err := st.ListBuildings(ctx)
	require.NoError(t, err)
	require.Len(t, buildings, 2)

	f := &fixture{
		store:     st,
		clock:     &fakeClock{now: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)},
		listener:  &recordingListener{},
		libraryID: buildings[0].ID,
		scienceID: buildings[1].ID,
	}

	libRooms, err := st.ListRooms(ctx, f.libraryID)
	require.NoError(t, err)
	require.Len(t, libRooms, 2)
	f.smallRoom, f.bigRoom = libRooms[0], libRooms[1]

	sciRooms, err := st.ListRooms(ctx, f.scienceID)
	require.NoError(t, err)
	require.Len(t, sciRooms, 1)
	f.labRoom = sciRooms[0]

	f.svc = NewService(st, f.clock, Config{Location: time.UTC, OpenFrom: 7 * 60, OpenUntil: 23 * 60})
	f.svc.AddListener(f.listener)
	return f
}

// book creates a reservation in the small room and fails the test on error.
func (f *fixture) book(t *testing.T, userID int64, start, end string) *model.Reservation {
	t.Helper()
	r, err := f.svc.CreateReservation(context.Background(), CreateReservationInput{
		UserID:         userID,
		RoomID:         f.smallRoom.ID,
		BuildingID:     f.libraryID,
		Date:           testDate,
		StartTime:      start,
		EndTime:        end,
		Purpose:        model.PurposeStudying,
		NumberOfPeople: 2,
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) room(t *testing.T, id int64) *model.Room {
	t.Helper()
	room, err := f.store.GetRoom(context.Background(), id)
	require.NoError(t, err)
	return room
}

func (f *fixture) reservation(t *testing.T, r *model.Reservation) *model.Reservation {
	t.Helper()
	got, err := f.store.GetReservation(context.Background(), r.ID)
	require.NoError(t, err)
	return got
}
