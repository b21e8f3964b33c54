package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"studyroom-backend/internal/booking"
	"studyroom-backend/internal/model"
	"studyroom-backend/internal/parse"
	"studyroom-backend/internal/store"
)

// roomResponse flattens a room with its derived status.
type roomResponse struct {
	model.Room
	OccupancyStatus model.OccupancyStatus `json:"occupancyStatus"`
}

func newRoomResponse(r model.Room) roomResponse {
	return roomResponse{Room: r, OccupancyStatus: r.OccupancyStatus()}
}

type slotResponse struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

func newSlots(slots []booking.Slot) []slotResponse {
	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotResponse{StartTime: parse.FormatClock(s.Start), EndTime: parse.FormatClock(s.End)})
	}
	return out
}

// ListBuildings handles GET /api/buildings.
func (h *Handler) ListBuildings(c *gin.Context) {
	buildings, err := h.store.ListBuildings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildings)
}

// ListRooms handles GET /api/buildings/:building_id/rooms.
func (h *Handler) ListRooms(c *gin.Context) {
	buildingID, ok := int64Param(c, "building_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.store.GetBuilding(ctx, buildingID); err != nil {
		respondError(c, notFound(err, booking.ErrBuildingNotFound))
		return
	}
	rooms, err := h.store.ListRooms(ctx, buildingID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]roomResponse, 0, len(rooms))
	for _, r := range rooms {
		response = append(response, newRoomResponse(r))
	}
	c.JSON(http.StatusOK, response)
}

// GetRoom handles GET /api/rooms/:room_id.
func (h *Handler) GetRoom(c *gin.Context) {
	roomID, ok := int64Param(c, "room_id")
	if !ok {
		return
	}
	room, err := h.store.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, notFound(err, booking.ErrRoomNotFound))
		return
	}
	c.JSON(http.StatusOK, newRoomResponse(*room))
}

// GetAvailability handles GET /api/rooms/:room_id/availability?date=YYYY-MM-DD.
func (h *Handler) GetAvailability(c *gin.Context) {
	roomID, ok := int64Param(c, "room_id")
	if !ok {
		return
	}
	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return
	}

	a, err := h.booking.Availability(c.Request.Context(), roomID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room":   newRoomResponse(a.Room),
		"date":   a.Date,
		"booked": newSlots(a.Booked),
		"free":   newSlots(a.Free),
	})
}

type maintenanceRequest struct {
	UnderMaintenance *bool `json:"under_maintenance" binding:"required"`
}

// SetMaintenance handles PUT /api/rooms/:room_id/maintenance.
func (h *Handler) SetMaintenance(c *gin.Context) {
	roomID, ok := int64Param(c, "room_id")
	if !ok {
		return
	}
	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	_, role := caller(c)
	room, err := h.booking.SetMaintenance(c.Request.Context(), roomID, role, *req.UnderMaintenance)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRoomResponse(*room))
}

// Live handles GET /api/buildings/:building_id/live and upgrades to a websocket.
func (h *Handler) Live(c *gin.Context) {
	buildingID, ok := int64Param(c, "building_id")
	if !ok {
		return
	}
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed is not available"})
		return
	}
	if _, err := h.store.GetBuilding(c.Request.Context(), buildingID); err != nil {
		respondError(c, notFound(err, booking.ErrBuildingNotFound))
		return
	}
	h.hub.ServeWS(c.Writer, c.Request, buildingID)
}

// notFound maps a store miss to target.
func notFound(err, target error) error {
	if errors.Is(err, store.ErrNotFound) {
		return target
	}
	return err
}
