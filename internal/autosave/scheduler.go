package autosave

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// DefaultInterval is the save throttle window. Edits arriving inside the
// window coalesce into one write carrying the latest snapshot.
const DefaultInterval = 3 * time.Second

// SaveFunc persists one snapshot.
type SaveFunc func(ctx context.Context, articleID string, doc json.RawMessage) error

type pendingSave struct {
	timer *time.Timer
	doc   json.RawMessage
}

// Scheduler throttles snapshot writes per article. Schedule is cheap and can
// be called on every edit; at most one write per article happens per
// interval, always carrying the most recent snapshot.
type Scheduler struct {
	interval time.Duration
	save     SaveFunc

	mu      sync.Mutex
	pending map[string]*pendingSave
	closed  bool
}

// NewScheduler builds a scheduler. A non-positive interval falls back to
// DefaultInterval.
func NewScheduler(interval time.Duration, save SaveFunc) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		interval: interval,
		save:     save,
		pending:  map[string]*pendingSave{},
	}
}

// Schedule records the latest snapshot of an article and arranges a write
// after the throttle window. Later calls within the window replace the
// snapshot without rescheduling.
func (s *Scheduler) Schedule(articleID string, doc json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if entry, ok := s.pending[articleID]; ok {
		entry.doc = doc
		return
	}
	entry := &pendingSave{doc: doc}
	entry.timer = time.AfterFunc(s.interval, func() { s.fire(articleID) })
	s.pending[articleID] = entry
}

// Flush writes the pending snapshot of an article immediately, if any.
func (s *Scheduler) Flush(ctx context.Context, articleID string) error {
	s.mu.Lock()
	entry, ok := s.pending[articleID]
	if ok {
		entry.timer.Stop()
		delete(s.pending, articleID)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.save(ctx, articleID, entry.doc)
}

// Cancel drops the pending snapshot of an article without writing it. Used
// when the article is saved for real or the edit session ends.
func (s *Scheduler) Cancel(articleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.pending[articleID]; ok {
		entry.timer.Stop()
		delete(s.pending, articleID)
	}
}

// Close stops the scheduler, writing pending snapshots first so the last
// edit before shutdown is not lost.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	remaining := make(map[string]json.RawMessage, len(s.pending))
	for id, entry := range s.pending {
		entry.timer.Stop()
		remaining[id] = entry.doc
		delete(s.pending, id)
	}
	s.mu.Unlock()

	for id, doc := range remaining {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.save(ctx, id, doc); err != nil {
			log.Printf("autosave %s on close: %v", id, err)
		}
		cancel()
	}
}

func (s *Scheduler) fire(articleID string) {
	s.mu.Lock()
	entry, ok := s.pending[articleID]
	if ok {
		delete(s.pending, articleID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.save(ctx, articleID, entry.doc); err != nil {
		log.Printf("autosave %s: %v", articleID, err)
	}
}
