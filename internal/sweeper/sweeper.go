package sweeper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"studyroom-backend/config"
)

// Abandoner closes sign-ins left open past their reservation.
type Abandoner interface {
	AbandonStale(ctx context.Context, grace time.Duration) (int, error)
}

// Service runs the stale sign-in sweep and other housekeeping on a cron schedule.
type Service struct {
	cfg       config.SweeperConfig
	abandoner Abandoner
	cron      *cron.Cron
}

// NewService creates a sweeper. Jobs registered on the same schedule never overlap.
func NewService(cfg config.SweeperConfig, abandoner Abandoner) *Service {
	return &Service{
		cfg:       cfg,
		abandoner: abandoner,
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
	}
}

// Every schedules an extra housekeeping job.
func (s *Service) Every(spec string, name string, fn func()) error {
	if _, err := s.cron.AddFunc(spec, fn); err != nil {
		return fmt.Errorf("failed to schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Enabled {
		if err := s.Every(s.cfg.Schedule, "stale sign-in sweep", func() { s.RunOnce(ctx) }); err != nil {
			return err
		}
		log.Printf("Starting sweeper service (schedule %q, grace %s)...", s.cfg.Schedule, s.cfg.Grace())
		s.RunOnce(ctx)
	} else {
		log.Println("Sweeper is disabled. Only housekeeping jobs will run.")
	}

	s.cron.Start()
	<-ctx.Done()

	log.Println("Sweeper service shutting down.")
	<-s.cron.Stop().Done()
	return nil
}

// RunOnce performs a single sweep and returns how many sign-ins it closed.
func (s *Service) RunOnce(ctx context.Context) int {
	log.Println("Executing sweep cycle...")
	n, err := s.abandoner.AbandonStale(ctx, s.cfg.Grace())
	if err != nil {
		log.Printf("Sweep finished with errors: %v", err)
	}
	if n > 0 {
		log.Printf("Sweep abandoned %d stale sign-ins", n)
	}
	return n
}
