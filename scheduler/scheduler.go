package scheduler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"
)

// AssetRefresher is the part of the asset cache the scheduler drives.
type AssetRefresher interface {
	Prefetch(ctx context.Context) int
}

// Scheduler refreshes the offline asset cache, either on a fixed interval or
// when HandleTick is called.
type Scheduler struct {
	cache    AssetRefresher
	interval time.Duration
}

// New creates a Scheduler. A zero interval disables the background loop.
func New(cache AssetRefresher, interval time.Duration) *Scheduler {
	return &Scheduler{cache: cache, interval: interval}
}

// HandleTick is an HTTP handler that triggers a scheduler tick.
// Used by an external cron or manual curl requests.
func (s *Scheduler) HandleTick(w http.ResponseWriter, r *http.Request) {
	log.Println("INFO (Scheduler): Tick triggered via HTTP")

	refreshed, err := s.Tick(r.Context())
	if err != nil {
		log.Printf("ERROR (Scheduler): Tick failed: %v", err)
		http.Error(w, "scheduler tick failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK: refreshed %d assets", refreshed)
}

// Tick runs a single refresh cycle and returns how many assets were stored.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, fmt.Errorf("asset cache is disabled")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.cache.Prefetch(ctx), nil
}

// Run ticks once right away, then every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.Tick(ctx); err != nil {
		log.Printf("ERROR (Scheduler): Initial tick failed: %v", err)
	}
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("INFO (Scheduler): Refreshing asset cache every %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("INFO (Scheduler): Stopped")
			return
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				log.Printf("ERROR (Scheduler): Tick failed: %v", err)
			}
		}
	}
}
