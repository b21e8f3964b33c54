package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"studyroom-backend/internal/booking"
	"studyroom-backend/internal/model"
	"studyroom-backend/internal/parse"
	"studyroom-backend/internal/store"
)

// reservationResponse renders minute-of-day values as HH:MM.
type reservationResponse struct {
	ID                 uuid.UUID               `json:"id"`
	UserID             int64                   `json:"userId"`
	RoomID             int64                   `json:"roomId"`
	BuildingID         int64                   `json:"buildingId"`
	Date               string                  `json:"date"`
	StartTime          string                  `json:"startTime"`
	EndTime            string                  `json:"endTime"`
	Duration           int                     `json:"duration"`
	Purpose            model.Purpose           `json:"purpose"`
	NumberOfPeople     int                     `json:"numberOfPeople"`
	Notes              string                  `json:"notes"`
	Status             model.ReservationStatus `json:"status"`
	CancellationReason *string                 `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time              `json:"cancelledAt,omitempty"`
	CancelledBy        *int64                  `json:"cancelledBy,omitempty"`
	CheckInTime        *time.Time              `json:"checkInTime,omitempty"`
	CheckOutTime       *time.Time              `json:"checkOutTime,omitempty"`
	CreatedAt          time.Time               `json:"createdAt"`
	UpdatedAt          time.Time               `json:"updatedAt"`
}

func newReservationResponse(r *model.Reservation) reservationResponse {
	return reservationResponse{
		ID:                 r.ID,
		UserID:             r.UserID,
		RoomID:             r.RoomID,
		BuildingID:         r.BuildingID,
		Date:               r.Date,
		StartTime:          parse.FormatClock(r.StartMinute),
		EndTime:            parse.FormatClock(r.EndMinute),
		Duration:           r.Duration(),
		Purpose:            r.Purpose,
		NumberOfPeople:     r.NumberOfPeople,
		Notes:              r.Notes,
		Status:             r.Status,
		CancellationReason: r.CancellationReason,
		CancelledAt:        r.CancelledAt,
		CancelledBy:        r.CancelledBy,
		CheckInTime:        r.CheckInTime,
		CheckOutTime:       r.CheckOutTime,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

type createReservationRequest struct {
	RoomID         int64         `json:"roomId" binding:"required"`
	BuildingID     int64         `json:"buildingId" binding:"required"`
	Date           string        `json:"date" binding:"required,date"`
	StartTime      string        `json:"startTime" binding:"required,clock"`
	EndTime        string        `json:"endTime" binding:"required,clock"`
	Purpose        model.Purpose `json:"purpose"`
	NumberOfPeople int           `json:"numberOfPeople" binding:"required"`
	Notes          string        `json:"notes" binding:"max=1024"`
}

// CreateReservation handles POST /api/reservations.
func (h *Handler) CreateReservation(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	userID, _ := caller(c)
	r, err := h.booking.CreateReservation(c.Request.Context(), booking.CreateReservationInput{
		UserID:         userID,
		RoomID:         req.RoomID,
		BuildingID:     req.BuildingID,
		Date:           req.Date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Purpose:        req.Purpose,
		NumberOfPeople: req.NumberOfPeople,
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newReservationResponse(r))
}

type listReservationsQuery struct {
	UserID int64                     `form:"user_id"`
	RoomID int64                     `form:"room_id"`
	Date   string                    `form:"date" binding:"omitempty,date"`
	Status []model.ReservationStatus `form:"status"`
	Page   int                       `form:"page" binding:"omitempty,min=1"`
	Limit  int                       `form:"limit" binding:"omitempty,min=1,max=100"`
}

// ListReservations handles GET /api/reservations. Students only ever see their own.
func (h *Handler) ListReservations(c *gin.Context) {
	var q listReservationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalidRequest(c, err)
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = 20
	}

	userID, role := caller(c)
	list, total, err := h.booking.ListReservations(c.Request.Context(), userID, role, store.ReservationFilter{
		UserID:   q.UserID,
		RoomID:   q.RoomID,
		Date:     q.Date,
		Statuses: q.Status,
		Page:     q.Page,
		PageSize: q.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]reservationResponse, 0, len(list))
	for i := range list {
		data = append(data, newReservationResponse(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  data,
		"total": total,
		"page":  q.Page,
		"limit": q.Limit,
	})
}

// GetReservation handles GET /api/reservations/:id.
func (h *Handler) GetReservation(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	userID, role := caller(c)
	r, err := h.booking.GetReservation(c.Request.Context(), id, userID, role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(r))
}

type updateReservationRequest struct {
	StartTime      *string                  `json:"startTime" binding:"omitempty,clock"`
	EndTime        *string                  `json:"endTime" binding:"omitempty,clock"`
	NumberOfPeople *int                     `json:"numberOfPeople"`
	Notes          *string                  `json:"notes" binding:"omitempty,max=1024"`
	Purpose        *model.Purpose           `json:"purpose"`
	Status         *model.ReservationStatus `json:"status"`
}

// UpdateReservation handles PATCH /api/reservations/:id.
func (h *Handler) UpdateReservation(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req updateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	userID, role := caller(c)
	r, err := h.booking.UpdateReservation(c.Request.Context(), id, userID, role, booking.ReservationPatch{
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		NumberOfPeople: req.NumberOfPeople,
		Notes:          req.Notes,
		Purpose:        req.Purpose,
		Status:         req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(r))
}

type cancelReservationRequest struct {
	Reason string `json:"reason" binding:"max=512"`
}

// CancelReservation handles POST /api/reservations/:id/cancel. The body is optional.
func (h *Handler) CancelReservation(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req cancelReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		invalidRequest(c, err)
		return
	}

	userID, role := caller(c)
	r, err := h.booking.CancelReservation(c.Request.Context(), id, userID, role, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(r))
}

// MarkNoShow handles POST /api/reservations/:id/no-show.
func (h *Handler) MarkNoShow(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	_, role := caller(c)
	r, err := h.booking.MarkNoShow(c.Request.Context(), id, role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(r))
}
