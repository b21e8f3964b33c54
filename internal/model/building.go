package model

import "time"

// Building represents a campus building that hosts study rooms.
type Building struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Code      string    `gorm:"size:32" json:"code"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`

	// Associations
	Rooms []Room `gorm:"foreignKey:BuildingID" json:"-"`
}
