package api

import (
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"studyroom-backend/internal/booking"
	"studyroom-backend/internal/live"
	"studyroom-backend/internal/mw"
	"studyroom-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	booking *booking.Service
	webpush *webpush.Options
	hub     *live.Hub
}

// NewHandler creates a new API handler. webpushOptions and hub may be nil.
func NewHandler(s store.Store, svc *booking.Service, webpushOptions *webpush.Options, hub *live.Hub) *Handler {
	return &Handler{
		store:   s,
		booking: svc,
		webpush: webpushOptions,
		hub:     hub,
	}
}

// caller returns the authenticated user. Auth must run before any handler using it.
func caller(c *gin.Context) (int64, booking.Role) {
	id, _ := mw.CurrentIdentity(c)
	return id.UserID, booking.Role(id.Role)
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// invalidRequest rejects a body or query that failed binding. The detail is
// attached to the context so the request logger prints it.
func invalidRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}
