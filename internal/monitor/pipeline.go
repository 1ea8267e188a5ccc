package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/proctor-backend/internal/alertfeed"
	"github.com/eleven-am/proctor-backend/internal/detection"
	"github.com/eleven-am/proctor-backend/internal/gateway"
	"github.com/eleven-am/proctor-backend/internal/session"
	"github.com/eleven-am/proctor-backend/internal/violation"
)

// Pipeline fans each violation out to every consumer: the in-memory
// tracker, the postgres archive, the alert feed, the dashboard hub and the
// per-exam counters. The tracker stays authoritative; everything else is
// best-effort.
type Pipeline struct {
	tracker *violation.Tracker
	archive *violation.Archive
	feed    *alertfeed.Feed
	hub     *gateway.Hub
	store   *session.Store
	health  *detection.HealthMonitor
	log     *slog.Logger

	mu          sync.RWMutex
	names       map[string]string
	onDepletion func(violation.Depletion)
}

type PipelineConfig struct {
	Tracker *violation.Tracker
	Archive *violation.Archive
	Feed    *alertfeed.Feed
	Hub     *gateway.Hub
	Store   *session.Store
	Health  *detection.HealthMonitor
	Logger  *slog.Logger
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		tracker: cfg.Tracker,
		archive: cfg.Archive,
		feed:    cfg.Feed,
		hub:     cfg.Hub,
		store:   cfg.Store,
		health:  cfg.Health,
		log:     cfg.Logger.With("component", "pipeline"),
		names:   make(map[string]string),
	}
}

// RegisterStudent records the display name used on feed entries for this
// student's violations.
func (p *Pipeline) RegisterStudent(studentID, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names[studentID] = name
}

func (p *Pipeline) UnregisterStudent(studentID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.names, studentID)
}

func (p *Pipeline) studentName(studentID string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if name, ok := p.names[studentID]; ok {
		return name
	}
	return studentID
}

// OnDepletion registers the callback fired when a student runs out of
// attempts, typically to end their session.
func (p *Pipeline) OnDepletion(fn func(violation.Depletion)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDepletion = fn
}

// Ingest implements violation.Ingestor.
func (p *Pipeline) Ingest(ctx context.Context, studentID, examID string, ev violation.Event, raw []string) violation.View {
	view := p.tracker.Record(studentID, examID, ev)

	if err := p.archive.Save(ctx, studentID, examID, ev, raw); err != nil {
		p.log.Error("failed to archive violation", "error", err, "student_id", studentID)
	}
	if err := p.store.IncrementViolations(ctx, examID); err != nil {
		p.log.Debug("failed to increment violation counter", "error", err)
	}

	alert := alertfeed.FromViolation(studentID, p.studentName(studentID), ev)
	p.feed.Push(alert)

	p.hub.Broadcast(gateway.NewEvent(gateway.EventAlert, alert))
	p.hub.Broadcast(gateway.NewEvent(gateway.EventAttempts, view))

	p.log.Info("violation recorded",
		"student_id", studentID,
		"exam_id", examID,
		"type", ev.Type,
		"severity", ev.Severity,
		"attempts_left", view.AttemptsLeft)
	return view
}

// SinkFor builds the sampler sink for one student's session.
func (p *Pipeline) SinkFor(studentID, examID string) detection.Sink {
	return func(res *detection.Result, ts time.Time) {
		ctx := context.Background()
		if err := p.store.IncrementFramesOK(ctx, examID); err != nil {
			p.log.Debug("failed to increment frame counter", "error", err)
		}

		for _, ev := range detection.Classify(res, ts) {
			p.Ingest(ctx, studentID, examID, ev, res.SuspiciousActivities)
		}
	}
}

// Run consumes depletion and detector-health signals until the context
// ends.
func (p *Pipeline) Run(ctx context.Context) {
	for {
		select {
		case d := <-p.tracker.Depletions():
			p.handleDepletion(ctx, d)
		case a := <-p.health.Alerts():
			p.handleHealthAlert(a)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) handleDepletion(ctx context.Context, d violation.Depletion) {
	if err := p.store.IncrementDepletions(ctx, d.ExamID); err != nil {
		p.log.Debug("failed to increment depletion counter", "error", err)
	}

	p.hub.Broadcast(gateway.NewEvent(gateway.EventDepletion, d))

	p.mu.RLock()
	fn := p.onDepletion
	p.mu.RUnlock()
	if fn != nil {
		fn(d)
	}
}

func (p *Pipeline) handleHealthAlert(a detection.HealthAlert) {
	alert := alertfeed.FromSystem(a.Message, !a.Available, a.Timestamp)
	p.feed.Push(alert)
	p.hub.Broadcast(gateway.NewEvent(gateway.EventHealth, alert))
}
