package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SignInStatus is the state of a physical check-in.
type SignInStatus string

const (
	SignInActive    SignInStatus = "active"
	SignInCompleted SignInStatus = "completed"
	SignInAbandoned SignInStatus = "abandoned"
)

// SignIn records a user physically occupying the room of a reservation.
type SignIn struct {
	ID             uuid.UUID    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ReservationID  uuid.UUID    `gorm:"type:varchar(36);not null;index" json:"reservationId"`
	UserID         int64        `gorm:"not null;index" json:"userId"`
	RoomID         int64        `gorm:"not null;index" json:"roomId"`
	BuildingID     int64        `gorm:"not null" json:"buildingId"`
	SignInTime     time.Time    `gorm:"not null" json:"signInTime"`
	SignOutTime    *time.Time   `json:"signOutTime"`
	ActualDuration *int         `json:"actualDuration"` // minutes, set on sign-out
	Status         SignInStatus `gorm:"size:16;not null;index" json:"status"`
	Notes          string       `gorm:"size:1024" json:"notes"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// TableName pins the table name used by the partial unique index DDL.
func (SignIn) TableName() string {
	return "sign_ins"
}

// BeforeCreate assigns an ID when the caller did not.
func (s *SignIn) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
