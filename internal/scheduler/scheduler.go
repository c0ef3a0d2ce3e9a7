package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// RefreshFunc performs one forecast refresh cycle.
type RefreshFunc func(ctx context.Context) error

// Scheduler periodically refreshes the forecast bundle so the cache stays
// warm and fallback tiers have something recent to serve.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresh   RefreshFunc
	interval  time.Duration
	timeout   time.Duration
}

// New creates a Scheduler running refresh every interval, each run bounded
// by timeout.
func New(interval, timeout time.Duration, refresh RefreshFunc) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		refresh:   refresh,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run fires immediately so the service does not sit without data
// until the first interval elapses.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 30
	}

	_, err := s.scheduler.Every(minutes).Minutes().StartImmediately().Do(func() {
		log.Println("scheduler: running forecast refresh")

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.refresh(ctx); err != nil {
			log.Printf("scheduler: refresh failed: %v", err)
			return
		}
		log.Println("scheduler: forecast refresh completed")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
