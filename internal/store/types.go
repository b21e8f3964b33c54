package store

import (
	"github.com/google/uuid"

	"studyroom-backend/internal/model"
)

// CatalogBuilding is a building with its rooms as provisioned from configuration.
type CatalogBuilding struct {
	Name  string
	Code  string
	Rooms []CatalogRoom
}

// CatalogRoom is one provisioned room.
type CatalogRoom struct {
	Name     string
	Floor    int
	Capacity int
}

// BuildingSummary aggregates the rooms of a building.
type BuildingSummary struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Code             string `json:"code"`
	TotalRooms       int    `json:"totalRooms"`
	TotalCapacity    int    `json:"totalCapacity"`
	CurrentOccupancy int    `json:"currentOccupancy"`
}

// ReservationFilter narrows ListReservations. Zero values are ignored.
type ReservationFilter struct {
	UserID   int64
	RoomID   int64
	Date     string
	Statuses []model.ReservationStatus
	Page     int
	PageSize int
}

// SignInFilter narrows ListSignIns. Zero values are ignored.
type SignInFilter struct {
	UserID        int64
	ReservationID uuid.UUID
	Status        model.SignInStatus
}
