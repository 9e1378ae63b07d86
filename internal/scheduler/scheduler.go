package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/weatherdash/weather-lookup/internal/store"
)

// Scheduler periodically prunes expired entries from the weather cache.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     *store.Store
	interval  time.Duration
	maxAge    time.Duration
}

// New creates a new Scheduler.
func New(st *store.Store, interval, maxAge time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		store:     st,
		interval:  interval,
		maxAge:    maxAge,
	}
}

// Start schedules the periodic prune job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.maxAge <= 0 {
		log.Println("scheduler: cache pruning disabled; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		removed, err := s.store.Prune(s.maxAge)
		if err != nil {
			log.Printf("scheduler: prune cache: %v", err)
			return
		}
		if removed > 0 {
			log.Printf("scheduler: pruned %d expired cache entries", removed)
		}
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
