package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"studyroom-backend/internal/booking"
	"studyroom-backend/internal/model"
)

type checkInRequest struct {
	ReservationID uuid.UUID `json:"reservationId" binding:"required"`
	RoomID        int64     `json:"roomId" binding:"required"`
	BuildingID    int64     `json:"buildingId" binding:"required"`
	Notes         string    `json:"notes" binding:"max=1024"`
}

// CheckIn handles POST /api/signins.
func (h *Handler) CheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	userID, _ := caller(c)
	si, err := h.booking.CheckIn(c.Request.Context(), booking.CheckInInput{
		ReservationID: req.ReservationID,
		RoomID:        req.RoomID,
		BuildingID:    req.BuildingID,
		UserID:        userID,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, si)
}

type checkOutRequest struct {
	Notes string `json:"notes" binding:"max=1024"`
}

// CheckOut handles POST /api/signins/:id/checkout. The body is optional.
func (h *Handler) CheckOut(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req checkOutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		invalidRequest(c, err)
		return
	}

	userID, _ := caller(c)
	si, err := h.booking.CheckOut(c.Request.Context(), id, userID, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, si)
}

// GetSignIn handles GET /api/signins/:id. Staff and admins may read anyone's.
func (h *Handler) GetSignIn(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	userID, role := caller(c)
	si, err := h.booking.GetSignIn(c.Request.Context(), id, userID, role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, si)
}

// ListSignIns handles GET /api/signins?status=.
func (h *Handler) ListSignIns(c *gin.Context) {
	status := model.SignInStatus(c.Query("status"))
	switch status {
	case "", model.SignInActive, model.SignInCompleted, model.SignInAbandoned:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	userID, _ := caller(c)
	list, err := h.booking.ListSignIns(c.Request.Context(), userID, status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
