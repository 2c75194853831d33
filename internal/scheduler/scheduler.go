// internal/scheduler/scheduler.go
package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bdrazn/adkextension/internal/session"
)

// sweepSchedule runs the idle sweep once a minute; the TTL decides what is
// actually removed.
const sweepSchedule = "@every 1m"

// Sweeper periodically deletes sessions that have been idle longer than the
// TTL. The store is in-memory, so without the sweeper long-lived processes
// accumulate every session ever created.
type Sweeper struct {
	store *session.InMemoryService
	ttl   time.Duration
	cron  *cron.Cron
}

// New creates a Sweeper over the given store. A non-positive ttl disables
// sweeping entirely; Start then becomes a no-op.
func New(store *session.InMemoryService, ttl time.Duration) *Sweeper {
	return &Sweeper{
		store: store,
		ttl:   ttl,
		cron:  cron.New(),
	}
}

// Start registers the sweep job and starts the cron ticker.
func (s *Sweeper) Start() error {
	if s.ttl <= 0 {
		return nil
	}

	_, err := s.cron.AddFunc(sweepSchedule, func() {
		removed := s.store.DeleteIdle(s.ttl)
		if removed > 0 {
			slog.Info("idle sessions swept", "removed", removed, "ttl", s.ttl)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	slog.Info("session sweeper started", "ttl", s.ttl)
	return nil
}

// Stop stops the cron ticker.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}
