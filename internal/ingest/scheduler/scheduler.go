package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"jobtrail-backend/internal/ingest/usecase"
)

// Fire hours, UTC. The batch runs twice daily for premium users.
var fireHours = []int{3, 15}

// BatchScheduler drives the ingestion pipeline for premium users on a
// fixed twice-daily schedule. A missed fire (process down across the
// boundary) is coalesced: the next boundary runs once, never twice.
type BatchScheduler struct {
	service  *usecase.IngestService
	runMu    sync.Mutex
	stopChan chan struct{}
}

// NewBatchScheduler creates a new scheduler
func NewBatchScheduler(service *usecase.IngestService) *BatchScheduler {
	return &BatchScheduler{
		service:  service,
		stopChan: make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *BatchScheduler) Start() {
	log.Printf("[BatchScheduler] Starting background sync scheduler (fires at 03:00 and 15:00 UTC)")

	go func() {
		for {
			now := time.Now().UTC()
			next := NextFire(now)
			timer := time.NewTimer(next.Sub(now))

			select {
			case <-timer.C:
				s.runOnce()
			case <-s.stopChan:
				timer.Stop()
				log.Printf("[BatchScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler. An in-flight batch finishes.
func (s *BatchScheduler) Stop() {
	close(s.stopChan)
}

// runOnce runs one batch, guaranteeing at most one instance at a time.
func (s *BatchScheduler) runOnce() {
	if !s.runMu.TryLock() {
		log.Printf("[BatchScheduler] Previous batch still running, skipping this fire")
		return
	}
	defer s.runMu.Unlock()

	log.Printf("[BatchScheduler] Starting premium batch email sync")
	started := time.Now()

	summary := s.service.RunBatch(context.Background())

	log.Printf("[BatchScheduler] Batch done in %s: %d success, %d errors, %d skipped",
		time.Since(started).Round(time.Second), summary.Success, summary.Errors, summary.Skipped)
}

// NextFire returns the next schedule boundary strictly after now.
func NextFire(now time.Time) time.Time {
	now = now.UTC()
	for _, hour := range fireHours {
		fire := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
		if fire.After(now) {
			return fire
		}
	}
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), fireHours[0], 0, 0, 0, time.UTC)
}
