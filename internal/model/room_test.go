package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoom_OccupancyStatus(t *testing.T) {
	testCases := []struct {
		name string
		room Room
		want OccupancyStatus
	}{
		{"empty", Room{}, OccupancyAvailable},
		{"occupied", Room{CurrentOccupancy: 2}, OccupancyOccupied},
		{"maintenance", Room{UnderMaintenance: true}, OccupancyMaintenance},
		{"occupied wins over maintenance", Room{CurrentOccupancy: 1, UnderMaintenance: true}, OccupancyOccupied},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.room.OccupancyStatus())
		})
	}
}

func TestReservation_Duration(t *testing.T) {
	assert.Equal(t, 120, Reservation{StartMinute: 840, EndMinute: 960}.Duration())
}

func TestReservationStatus(t *testing.T) {
	for _, s := range BlockingStatuses {
		assert.True(t, s.Active(), s)
	}
	for _, s := range []ReservationStatus{ReservationCancelled, ReservationCompleted, ReservationNoShow} {
		assert.False(t, s.Active(), s)
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, ReservationStatus("archived").Valid())
	assert.True(t, PurposeExamPrep.Valid())
	assert.False(t, Purpose("party").Valid())
}
