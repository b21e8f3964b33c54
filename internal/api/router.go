package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"studyroom-backend/config"
	"studyroom-backend/internal/booking"
	"studyroom-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, server config.ServerConfig, auth config.AuthConfig, limiter *mw.KeyedRateLimiter) (*gin.Engine, error) {
	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.Default()
	r.Use(cors.New(corsConfig(server.AllowedOrigins)))

	rateLimiter := mw.RateLimiter(limiter)

	// Catalog reads are cached; any change to a room's occupancy flushes them.
	cacheStore := cache.New(server.CacheTTL(), 2*server.CacheTTL())
	caching := mw.Cache(cacheStore, server.CacheTTL())
	if h.booking != nil {
		h.booking.AddListener(mw.FlushOnChange{Store: cacheStore})
	}

	public := r.Group("/api")
	public.Use(rateLimiter)
	{
		public.GET("/buildings", caching, h.ListBuildings)
		public.GET("/buildings/:building_id/rooms", caching, h.ListRooms)
		public.GET("/buildings/:building_id/live", h.Live)
		public.GET("/rooms/:room_id", caching, h.GetRoom)
		public.GET("/rooms/:room_id/availability", h.GetAvailability)

		public.GET("/subscriptions", h.GetSubscription)
		public.PUT("/subscriptions", h.PutSubscription)
		public.DELETE("/subscriptions", h.DeleteSubscription)
		public.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	// Authenticated routes are limited per user rather than per IP.
	authed := r.Group("/api")
	authed.Use(mw.Auth(auth.JWTSecret, auth.Issuer), rateLimiter)
	{
		authed.POST("/reservations", h.CreateReservation)
		authed.GET("/reservations", h.ListReservations)
		authed.GET("/reservations/:id", h.GetReservation)
		authed.PATCH("/reservations/:id", h.UpdateReservation)
		authed.POST("/reservations/:id/cancel", h.CancelReservation)
		authed.POST("/reservations/:id/no-show",
			mw.RequireRole(string(booking.RoleAdmin), string(booking.RoleStaff)), h.MarkNoShow)

		authed.POST("/signins", h.CheckIn)
		authed.GET("/signins", h.ListSignIns)
		authed.GET("/signins/:id", h.GetSignIn)
		authed.POST("/signins/:id/checkout", h.CheckOut)

		authed.PUT("/rooms/:room_id/maintenance",
			mw.RequireRole(string(booking.RoleAdmin)), caching, h.SetMaintenance)
	}

	return r, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length", "X-Cache"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
