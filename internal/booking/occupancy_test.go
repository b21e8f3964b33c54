package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyroom-backend/internal/model"
)

func (f *fixture) checkIn(t *testing.T, r *model.Reservation) *model.SignIn {
	t.Helper()
	si, err := f.svc.CheckIn(context.Background(), CheckInInput{
		ReservationID: r.ID,
		RoomID:        r.RoomID,
		BuildingID:    r.BuildingID,
		UserID:        r.UserID,
	})
	require.NoError(t, err)
	return si
}

func TestCheckInCheckOut_RestoresOccupancyAndCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, 1, "14:00", "16:00")
	before := f.room(t, f.smallRoom.ID).CurrentOccupancy

	si, err := f.svc.CheckIn(ctx, CheckInInput{
		ReservationID: r.ID,
		RoomID:        f.smallRoom.ID,
		BuildingID:    f.libraryID,
		UserID:        1,
		Notes:         "at the window desk",
	})
	require.NoError(t, err)
	assert.Equal(t, model.SignInActive, si.Status)
	assert.True(t, si.SignInTime.Equal(f.clock.Now()))
	assert.Nil(t, si.SignOutTime)
	assert.Nil(t, si.ActualDuration)

	during := f.room(t, f.smallRoom.ID)
	assert.Equal(t, before+1, during.CurrentOccupancy)
	assert.Equal(t, model.OccupancyOccupied, during.OccupancyStatus())

	f.clock.Advance(45*time.Minute + 30*time.Second)
	out, err := f.svc.CheckOut(ctx, si.ID, 1, "")
	require.NoError(t, err)
	assert.Equal(t, model.SignInCompleted, out.Status)
	require.NotNil(t, out.ActualDuration)
	assert.Equal(t, 46, *out.ActualDuration)
	require.NotNil(t, out.SignOutTime)
	assert.True(t, out.SignOutTime.Equal(f.clock.Now()))
	assert.Equal(t, "at the window desk", out.Notes)

	after := f.room(t, f.smallRoom.ID)
	assert.Equal(t, before, after.CurrentOccupancy)
	assert.Equal(t, model.OccupancyAvailable, after.OccupancyStatus())

	completed := f.reservation(t, r)
	assert.Equal(t, model.ReservationCompleted, completed.Status)
	require.NotNil(t, completed.CheckInTime)
	require.NotNil(t, completed.CheckOutTime)
	assert.True(t, completed.CheckInTime.Equal(si.SignInTime))
	assert.True(t, completed.CheckOutTime.Equal(*out.SignOutTime))

	events := f.listener.Events()
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].CurrentOccupancy)
	assert.Equal(t, 0, events[1].CurrentOccupancy)
}

func TestCheckOut_DurationRounding(t *testing.T) {
	testCases := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{"just under half a minute", 10*time.Minute + 29*time.Second, 10},
		{"exactly half a minute rounds up", 10*time.Minute + 30*time.Second, 11},
		{"whole minutes", 90 * time.Minute, 90},
		{"instant", 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			r := f.book(t, 1, "14:00", "16:00")
			si := f.checkIn(t, r)

			f.clock.Advance(tc.elapsed)
			out, err := f.svc.CheckOut(context.Background(), si.ID, 1, "")
			require.NoError(t, err)
			assert.Equal(t, tc.want, *out.ActualDuration)
		})
	}
}

func TestCheckIn_DoubleCheckInIsValidationError(t *testing.T) {
	f := newFixture(t)
	r := f.book(t, 1, "14:00", "16:00")
	f.checkIn(t, r)

	_, err := f.svc.CheckIn(context.Background(), CheckInInput{
		ReservationID: r.ID, RoomID: f.smallRoom.ID, BuildingID: f.libraryID, UserID: 1,
	})
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 1, f.room(t, f.smallRoom.ID).CurrentOccupancy)
}

func TestCheckIn_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, 1, "14:00", "16:00")
	cancelled := f.book(t, 1, "17:00", "18:00")
	_, err := f.svc.CancelReservation(ctx, cancelled.ID, 1, RoleStudent, "")
	require.NoError(t, err)

	testCases := []struct {
		name    string
		in      CheckInInput
		wantErr error
	}{
		{"unknown reservation", CheckInInput{ReservationID: uuid.New(), RoomID: f.smallRoom.ID, BuildingID: f.libraryID, UserID: 1}, ErrReservationNotFound},
		{"other user", CheckInInput{ReservationID: r.ID, RoomID: f.smallRoom.ID, BuildingID: f.libraryID, UserID: 2}, ErrForbidden},
		{"wrong room", CheckInInput{ReservationID: r.ID, RoomID: f.bigRoom.ID, BuildingID: f.libraryID, UserID: 1}, ErrReservationMismatch},
		{"wrong building", CheckInInput{ReservationID: r.ID, RoomID: f.smallRoom.ID, BuildingID: f.scienceID, UserID: 1}, ErrReservationMismatch},
		{"cancelled reservation", CheckInInput{ReservationID: cancelled.ID, RoomID: f.smallRoom.ID, BuildingID: f.libraryID, UserID: 1}, ErrValidation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CheckIn(ctx, tc.in)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	assert.Equal(t, 0, f.room(t, f.smallRoom.ID).CurrentOccupancy)
	assert.Empty(t, f.listener.Events())
}

func TestCheckOut_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, 1, "14:00", "16:00")
	si := f.checkIn(t, r)

	_, err := f.svc.CheckOut(ctx, uuid.New(), 1, "")
	assert.ErrorIs(t, err, ErrSignInNotFound)

	_, err = f.svc.CheckOut(ctx, si.ID, 2, "")
	assert.ErrorIs(t, err, ErrNotSignInOwner)

	_, err = f.svc.CheckOut(ctx, si.ID, 1, "")
	require.NoError(t, err)

	_, err = f.svc.CheckOut(ctx, si.ID, 1, "")
	assert.ErrorIs(t, err, ErrSignInNotActive)
	assert.Equal(t, 0, f.room(t, f.smallRoom.ID).CurrentOccupancy)
}

func TestGetSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	si := f.checkIn(t, f.book(t, 1, "14:00", "16:00"))

	got, err := f.svc.GetSignIn(ctx, si.ID, 1, RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, si.ID, got.ID)
	assert.Equal(t, model.SignInActive, got.Status)

	_, err = f.svc.GetSignIn(ctx, si.ID, 2, RoleStudent)
	assert.ErrorIs(t, err, ErrNotSignInOwner)

	got, err = f.svc.GetSignIn(ctx, si.ID, 2, RoleStaff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.UserID)

	_, err = f.svc.GetSignIn(ctx, uuid.New(), 1, RoleAdmin)
	assert.ErrorIs(t, err, ErrSignInNotFound)
}

func TestCheckIn_ConfirmedReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, 1, "14:00", "16:00")
	_, err := f.svc.UpdateReservation(ctx, r.ID, 1, RoleStudent, ReservationPatch{Status: ptr(model.ReservationConfirmed)})
	require.NoError(t, err)

	f.checkIn(t, r)
	assert.Equal(t, 1, f.room(t, f.smallRoom.ID).CurrentOccupancy)

	_, err = f.svc.MarkNoShow(ctx, r.ID, RoleAdmin)
	assert.ErrorIs(t, err, ErrCheckedIn)
}

func TestCheckIn_SharedRoomCountsEachReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, 1, "14:00", "15:00")
	b := f.book(t, 2, "15:00", "16:00")

	siA := f.checkIn(t, a)
	f.checkIn(t, b)
	assert.Equal(t, 2, f.room(t, f.smallRoom.ID).CurrentOccupancy)

	_, err := f.svc.CheckOut(ctx, siA.ID, 1, "")
	require.NoError(t, err)
	room := f.room(t, f.smallRoom.ID)
	assert.Equal(t, 1, room.CurrentOccupancy)
	assert.Equal(t, model.OccupancyOccupied, room.OccupancyStatus())
}

func TestAbandonStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, 1, "14:00", "16:00")
	other := f.book(t, 2, "16:00", "20:00")
	si := f.checkIn(t, r)
	f.checkIn(t, other)

	f.clock.Set(time.Date(2026, 3, 2, 16, 20, 0, 0, time.UTC))
	n, err := f.svc.AbandonStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Set(time.Date(2026, 3, 2, 16, 31, 0, 0, time.UTC))
	n, err = f.svc.AbandonStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := f.svc.ListSignIns(ctx, 1, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, si.ID, list[0].ID)
	assert.Equal(t, model.SignInAbandoned, list[0].Status)
	require.NotNil(t, list[0].ActualDuration)
	assert.Equal(t, 151, *list[0].ActualDuration)

	assert.Equal(t, 1, f.room(t, f.smallRoom.ID).CurrentOccupancy)
	assert.Equal(t, model.ReservationCompleted, f.reservation(t, r).Status)
	assert.Equal(t, model.ReservationPending, f.reservation(t, other).Status)

	// a second sweep has nothing left to do
	n, err = f.svc.AbandonStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSetMaintenance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetMaintenance(ctx, f.smallRoom.ID, RoleStaff, true)
	assert.ErrorIs(t, err, ErrAdminOnly)

	room, err := f.svc.SetMaintenance(ctx, f.smallRoom.ID, RoleAdmin, true)
	require.NoError(t, err)
	assert.Equal(t, model.OccupancyMaintenance, room.OccupancyStatus())

	// a checked-in user still shows the room as occupied
	r := f.book(t, 1, "14:00", "16:00")
	f.checkIn(t, r)
	assert.Equal(t, model.OccupancyOccupied, f.room(t, f.smallRoom.ID).OccupancyStatus())

	_, err = f.svc.SetMaintenance(ctx, 9999, RoleAdmin, true)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
