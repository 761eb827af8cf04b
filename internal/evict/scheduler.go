// Package evict removes time-expired events from the cache and the remote
// store. A sweep runs at local midnight and every 24 hours after; what the UI
// shows is filtered by its own upcoming check, so display correctness never
// depends on sweep timing.
package evict

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/campushub/backend/internal/cache"
)

// Deleter is the slice of the mutation pipeline the sweep needs.
type Deleter interface {
	DeleteEvent(ctx context.Context, id string) error
}

type Scheduler struct {
	deleter Deleter
	cache   *cache.Cache

	mu   sync.Mutex
	cron *cron.Cron

	now func() time.Time
}

func New(deleter Deleter, c *cache.Cache) *Scheduler {
	return &Scheduler{deleter: deleter, cache: c, now: time.Now}
}

// Start arms the midnight sweep. A second Start on a running scheduler is a
// no-op; callers invoke it when an identity becomes present. Nothing is
// persisted: after a restart the next Start re-arms from the current time and
// already-expired events stay hidden by the display filter until swept.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}
	s.cron = cron.New(cron.WithLocation(time.Local))
	if _, err := s.cron.AddFunc("0 0 * * *", func() { s.Sweep(context.Background()) }); err != nil {
		log.Printf("eviction schedule: %v", err)
		s.cron = nil
		return
	}
	s.cron.Start()
	log.Println("eviction scheduler armed (daily at local midnight)")
}

// Stop cancels the pending timer. Must run on sign-out and on teardown so a
// sweep never fires against a torn-down cache.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.cron = nil
}

// Sweep deletes every cached event whose instant is not strictly in the
// future, through the pipeline so the remote store and cache stay aligned.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := s.now()
	for _, e := range s.cache.Events.Items() {
		if e.Upcoming(now) {
			continue
		}
		if err := s.deleter.DeleteEvent(ctx, e.ID); err != nil {
			log.Printf("evict event %s: %v", e.ID, err)
		}
	}
}
