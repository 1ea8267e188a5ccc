package detection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/proctor-backend/internal/camera"
)

// FrameSource produces the latest still from the camera session. A nil
// frame means nothing is available yet.
type FrameSource interface {
	CaptureFrame() *camera.Frame
}

// Analyzer is the analysis side of the detector client.
type Analyzer interface {
	Analyze(ctx context.Context, jpegData []byte) (*Result, error)
}

type failureReporter interface {
	ReportFailure(ctx context.Context)
}

// statusReader reports the detector's last known availability.
type statusReader interface {
	Health() ServerHealth
}

// Sink receives each completed verdict. It runs on the sampler's analysis
// goroutine, so it should hand off quickly.
type Sink func(res *Result, ts time.Time)

// Sampler drives the periodic capture-and-analyze loop. At most one
// analysis is in flight; ticks that land while one is running are skipped
// rather than queued.
type Sampler struct {
	source   FrameSource
	analyzer Analyzer
	health   failureReporter
	status   statusReader
	sink     Sink
	interval time.Duration
	log      *slog.Logger

	mu       sync.Mutex
	running  bool
	inflight bool
	done     chan struct{}
}

type SamplerConfig struct {
	Source   FrameSource
	Analyzer Analyzer
	Health   failureReporter
	Status   statusReader
	Sink     Sink
	Interval time.Duration
	Logger   *slog.Logger
}

func NewSampler(cfg SamplerConfig) *Sampler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSampleInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Sampler{
		source:   cfg.Source,
		analyzer: cfg.Analyzer,
		health:   cfg.Health,
		status:   cfg.Status,
		sink:     cfg.Sink,
		interval: cfg.Interval,
		log:      cfg.Logger.With("component", "frame-sampler"),
	}
}

func (s *Sampler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.tick(ctx, done)
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the loop. A result from an analysis already in flight is
// discarded, never delivered after Stop returns.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.done)
}

func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sampler) tick(ctx context.Context, done chan struct{}) {
	// A cycle during a detector outage is skipped outright; the health
	// monitor's own poll decides when to resume.
	if s.status != nil && !s.status.Health().Available {
		return
	}

	frame := s.source.CaptureFrame()
	if frame == nil {
		return
	}

	s.mu.Lock()
	if s.inflight {
		s.mu.Unlock()
		return
	}
	s.inflight = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.inflight = false
			s.mu.Unlock()
		}()

		res, err := s.analyzer.Analyze(ctx, frame.Data)
		if err != nil {
			s.log.Error("frame analysis failed", "error", err)
			if s.health != nil {
				s.health.ReportFailure(ctx)
			}
			return
		}

		select {
		case <-done:
			// Stopped while the request was in flight.
			return
		default:
		}

		if s.sink != nil {
			s.sink(res, frame.Timestamp)
		}
	}()
}
