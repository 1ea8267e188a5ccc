package alertfeed

import (
	"log/slog"
	"sync"
)

const DefaultCapacity = 200

// Feed is the in-memory alert list backing the dashboard, held newest
// first. When the capacity is hit the oldest entries fall off the tail.
type Feed struct {
	capacity int
	log      *slog.Logger

	mu     sync.RWMutex
	alerts []Alert
}

type FeedConfig struct {
	Capacity int
	Logger   *slog.Logger
}

func NewFeed(cfg FeedConfig) *Feed {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Feed{
		capacity: cfg.Capacity,
		log:      cfg.Logger.With("component", "alert-feed"),
	}
}

// Push prepends the alert so the newest entry is always first.
func (f *Feed) Push(a Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.alerts = append([]Alert{a}, f.alerts...)
	if len(f.alerts) > f.capacity {
		f.alerts = f.alerts[:f.capacity]
	}
}

// All returns a copy of the feed, newest first.
func (f *Feed) All() []Alert {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]Alert, len(f.alerts))
	copy(out, f.alerts)
	return out
}

// FirstAlert returns the oldest retained entry, the one that started the
// current feed window.
func (f *Feed) FirstAlert() (Alert, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.alerts) == 0 {
		return Alert{}, false
	}
	return f.alerts[len(f.alerts)-1], true
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.alerts)
}

// ClearStudent drops all alerts for one student. Clearing a student with
// no alerts is a no-op.
func (f *Feed) ClearStudent(studentID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.alerts[:0]
	removed := 0
	for _, a := range f.alerts {
		if a.StudentID == studentID {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	f.alerts = kept
	return removed
}

// ClearAll empties the feed. Idempotent.
func (f *Feed) ClearAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = nil
}
