package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"golang.org/x/time/rate"

	"studyroom-backend/config"
	"studyroom-backend/internal/api"
	"studyroom-backend/internal/booking"
	"studyroom-backend/internal/db"
	"studyroom-backend/internal/live"
	"studyroom-backend/internal/mw"
	"studyroom-backend/internal/notification"
	"studyroom-backend/internal/parse"
	"studyroom-backend/internal/store"
	"studyroom-backend/internal/sweeper"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "studyroom-backend ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	bookingCfg, err := bookingConfig(cfg.Booking)
	if err != nil {
		logger.Fatalf("invalid booking configuration: %v", err)
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	if err := appStore.UpsertCatalog(ctx, catalog(cfg.Catalog)); err != nil {
		logger.Fatalf("failed to provision room catalog: %v", err)
	}
	logger.Printf("room catalog provisioned (%d buildings)", len(cfg.Catalog))

	bookingSvc := booking.NewService(appStore, booking.RealClock{}, bookingCfg)

	hub := live.NewHub()
	go hub.Run(ctx)
	bookingSvc.AddListener(hub)

	// Push notifications are optional; without VAPID keys the pool is not started.
	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		pool.Start(ctx)
		bookingSvc.AddListener(pool)
		logger.Printf("notification worker pool started with %d workers", cfg.WorkerPool.Size)
	} else {
		logger.Println("VAPID keys not configured, push notifications disabled")
	}

	limiter := mw.NewKeyedRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst, 10*time.Minute)

	sweeperSvc := sweeper.NewService(cfg.Sweeper, bookingSvc)
	if err := sweeperSvc.Every("@every 5m", "rate limiter cleanup", func() {
		if n := limiter.Cleanup(); n > 0 {
			logger.Printf("dropped %d idle rate limiters", n)
		}
	}); err != nil {
		logger.Fatalf("failed to schedule housekeeping: %v", err)
	}
	go func() {
		if err := sweeperSvc.Run(ctx); err != nil {
			logger.Printf("sweeper stopped: %v", err)
		}
	}()

	// Initialize router
	router, err := api.NewRouter(api.NewHandler(appStore, bookingSvc, webpushOptions, hub), cfg.Server, cfg.Auth, limiter)
	if err != nil {
		logger.Fatalf("failed to build router: %v", err)
	}
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}
	cancel()

	logger.Println("Server gracefully stopped")
}

func bookingConfig(c config.BookingConfig) (booking.Config, error) {
	from, err := parse.ParseClock(c.OpenFrom)
	if err != nil {
		return booking.Config{}, fmt.Errorf("booking.open_from: %w", err)
	}
	until, err := parse.ParseClock(c.OpenUntil)
	if err != nil {
		return booking.Config{}, fmt.Errorf("booking.open_until: %w", err)
	}
	if from >= until {
		return booking.Config{}, fmt.Errorf("booking.open_from %s must be before open_until %s", c.OpenFrom, c.OpenUntil)
	}
	return booking.Config{Location: c.Location(), OpenFrom: from, OpenUntil: until}, nil
}

func catalog(buildings []config.CatalogBuilding) []store.CatalogBuilding {
	out := make([]store.CatalogBuilding, 0, len(buildings))
	for _, b := range buildings {
		rooms := make([]store.CatalogRoom, 0, len(b.Rooms))
		for _, r := range b.Rooms {
			rooms = append(rooms, store.CatalogRoom{Name: r.Name, Floor: r.Floor, Capacity: r.Capacity})
		}
		out = append(out, store.CatalogBuilding{Name: b.Name, Code: b.Code, Rooms: rooms})
	}
	return out
}
