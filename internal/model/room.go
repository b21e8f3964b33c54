package model

import "time"

// OccupancyStatus is the live state of a room as derived from its headcount.
type OccupancyStatus string

const (
	OccupancyAvailable   OccupancyStatus = "available"
	OccupancyOccupied    OccupancyStatus = "occupied"
	OccupancyMaintenance OccupancyStatus = "maintenance"
)

// Room represents a bookable study room.
//
// CurrentOccupancy is only ever changed through atomic SQL expressions in the
// store; OccupancyStatus is computed from it and never persisted.
type Room struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	BuildingID       int64     `gorm:"not null;uniqueIndex:idx_room_building_name" json:"buildingId"`
	Name             string    `gorm:"size:128;not null;uniqueIndex:idx_room_building_name" json:"name"`
	Floor            int       `json:"floor"`
	Capacity         int       `gorm:"not null" json:"capacity"`
	CurrentOccupancy int       `gorm:"not null;default:0" json:"currentOccupancy"`
	UnderMaintenance bool      `gorm:"not null;default:false" json:"underMaintenance"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`

	// Associations
	Building *Building `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// OccupancyStatus derives the room state. A non-zero headcount always wins
// over the maintenance flag.
func (r Room) OccupancyStatus() OccupancyStatus {
	switch {
	case r.CurrentOccupancy > 0:
		return OccupancyOccupied
	case r.UnderMaintenance:
		return OccupancyMaintenance
	default:
		return OccupancyAvailable
	}
}
