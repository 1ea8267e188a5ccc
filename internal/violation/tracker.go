package violation

import (
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultMaxAttempts  = 10
	MinMaxAttempts      = 1
	MaxMaxAttempts      = 50
	DefaultHistoryLimit = 20
)

// Depletion is the terminal signal emitted when a student's attempts reach
// zero. The tracker never terminates anything itself; disconnecting the
// exam session is the consumer's job.
type Depletion struct {
	StudentID string    `json:"student_id"`
	ExamID    string    `json:"exam_id"`
	Timestamp time.Time `json:"timestamp"`
}

type TrackerConfig struct {
	MaxAttempts  int
	HistoryLimit int
	Logger       *slog.Logger
}

// Tracker keeps per (student, exam) attempt accounting in memory.
// Mutations happen under one lock so a reader never observes a
// half-applied record.
type Tracker struct {
	maxAttempts  int
	historyLimit int
	log          *slog.Logger

	mu    sync.Mutex
	byKey map[trackerKey]*Attempts

	depletions chan Depletion
}

type trackerKey struct {
	studentID string
	examID    string
}

func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	cfg.MaxAttempts = clampMaxAttempts(cfg.MaxAttempts)
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Tracker{
		maxAttempts:  cfg.MaxAttempts,
		historyLimit: cfg.HistoryLimit,
		log:          cfg.Logger.With("component", "violation-tracker"),
		byKey:        make(map[trackerKey]*Attempts),
		depletions:   make(chan Depletion, 16),
	}
}

// Depletions delivers terminal signals. Sends are non-blocking; an absent
// consumer is a no-op, not an error.
func (t *Tracker) Depletions() <-chan Depletion {
	return t.depletions
}

// Record appends the event, increments the attempt counter and returns the
// updated aggregate. The counter keeps incrementing past the maximum;
// AttemptsLeft clamps at zero.
func (t *Tracker) Record(studentID, examID string, ev Event) View {
	t.mu.Lock()
	defer t.mu.Unlock()

	agg := t.getOrCreateLocked(studentID, examID)
	agg.CurrentAttempts++
	agg.History = append(agg.History, ev)
	if overflow := len(agg.History) - t.historyLimit; overflow > 0 {
		agg.History = agg.History[overflow:]
	}

	if agg.AttemptsLeft() == 0 && !agg.depleted {
		agg.depleted = true
		t.log.Warn("attempts depleted, auto-disconnect due",
			"student_id", studentID, "exam_id", examID)
		select {
		case t.depletions <- Depletion{StudentID: studentID, ExamID: examID, Timestamp: ev.Timestamp}:
		default:
		}
	}

	return agg.view()
}

// Reset zeroes the counters and clears history, regardless of prior state.
// Authorization for who may reset is enforced upstream.
func (t *Tracker) Reset(studentID, examID string) View {
	t.mu.Lock()
	defer t.mu.Unlock()

	agg := t.getOrCreateLocked(studentID, examID)
	agg.CurrentAttempts = 0
	agg.History = nil
	agg.depleted = false
	return agg.view()
}

func (t *Tracker) Get(studentID, examID string) (View, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	agg, ok := t.byKey[trackerKey{studentID, examID}]
	if !ok {
		return View{}, false
	}
	return agg.view(), true
}

// SetMaxAttempts adjusts the ceiling for one aggregate, clamped to the
// allowed 1..50 range.
func (t *Tracker) SetMaxAttempts(studentID, examID string, max int) View {
	t.mu.Lock()
	defer t.mu.Unlock()

	agg := t.getOrCreateLocked(studentID, examID)
	agg.MaxAttempts = clampMaxAttempts(max)
	if agg.AttemptsLeft() > 0 {
		agg.depleted = false
	}
	return agg.view()
}

func (t *Tracker) All() []View {
	t.mu.Lock()
	defer t.mu.Unlock()

	views := make([]View, 0, len(t.byKey))
	for _, agg := range t.byKey {
		views = append(views, agg.view())
	}
	return views
}

func (t *Tracker) getOrCreateLocked(studentID, examID string) *Attempts {
	key := trackerKey{studentID, examID}
	agg, ok := t.byKey[key]
	if !ok {
		agg = &Attempts{
			StudentID:   studentID,
			ExamID:      examID,
			MaxAttempts: t.maxAttempts,
		}
		t.byKey[key] = agg
	}
	return agg
}

func clampMaxAttempts(n int) int {
	if n < MinMaxAttempts {
		return MinMaxAttempts
	}
	if n > MaxMaxAttempts {
		return MaxMaxAttempts
	}
	return n
}
