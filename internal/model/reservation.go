package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
	ReservationNoShow    ReservationStatus = "no-show"
)

// BlockingStatuses are the statuses that hold a time slot.
var BlockingStatuses = []ReservationStatus{ReservationPending, ReservationConfirmed}

// Active reports whether the reservation still holds its slot.
func (s ReservationStatus) Active() bool {
	return s == ReservationPending || s == ReservationConfirmed
}

// Valid reports whether s is a known status.
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationPending, ReservationConfirmed, ReservationCancelled, ReservationCompleted, ReservationNoShow:
		return true
	}
	return false
}

// Purpose describes what a room is booked for.
type Purpose string

const (
	PurposeStudying     Purpose = "studying"
	PurposeGroupProject Purpose = "group-project"
	PurposeMeeting      Purpose = "meeting"
	PurposeExamPrep     Purpose = "exam-prep"
	PurposeOther        Purpose = "other"
)

// Valid reports whether p is one of the accepted purposes.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeStudying, PurposeGroupProject, PurposeMeeting, PurposeExamPrep, PurposeOther:
		return true
	}
	return false
}

// Reservation is a booking of one room for a [StartMinute, EndMinute) window on Date.
type Reservation struct {
	ID             uuid.UUID         `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID         int64             `gorm:"not null;index" json:"userId"`
	RoomID         int64             `gorm:"not null;index:idx_reservation_room_date" json:"roomId"`
	BuildingID     int64             `gorm:"not null" json:"buildingId"`
	Date           string            `gorm:"size:10;not null;index:idx_reservation_room_date" json:"date"` // YYYY-MM-DD
	StartMinute    int               `gorm:"not null" json:"startMinute"`
	EndMinute      int               `gorm:"not null" json:"endMinute"`
	Purpose        Purpose           `gorm:"size:32;not null" json:"purpose"`
	NumberOfPeople int               `gorm:"not null" json:"numberOfPeople"`
	Notes          string            `gorm:"size:1024" json:"notes"`
	Status         ReservationStatus `gorm:"size:16;not null;index" json:"status"`

	CancellationReason *string    `gorm:"size:512" json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CancelledBy        *int64     `json:"cancelledBy,omitempty"`

	CheckInTime  *time.Time `json:"checkInTime,omitempty"`
	CheckOutTime *time.Time `json:"checkOutTime,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns an ID when the caller did not.
func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Duration is the booked length in minutes.
func (r Reservation) Duration() int {
	return r.EndMinute - r.StartMinute
}
