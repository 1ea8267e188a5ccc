package detection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eleven-am/proctor-backend/internal/camera"
)

type fakeSource struct {
	mu    sync.Mutex
	frame *camera.Frame
}

func (s *fakeSource) CaptureFrame() *camera.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   int
	err     error
	release chan struct{}
}

func (a *fakeAnalyzer) Analyze(_ context.Context, _ []byte) (*Result, error) {
	a.mu.Lock()
	a.calls++
	release := a.release
	err := a.err
	a.mu.Unlock()

	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return &Result{FaceDetected: true}, nil
}

func (a *fakeAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type fakeReporter struct {
	mu    sync.Mutex
	calls int
}

func (r *fakeReporter) ReportFailure(_ context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

type fakeStatus struct {
	mu        sync.Mutex
	available bool
}

func (f *fakeStatus) Health() ServerHealth {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ServerHealth{Available: f.available, LastCheckedAt: time.Now()}
}

func (f *fakeStatus) set(available bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available = available
}

type sinkRecorder struct {
	mu      sync.Mutex
	results []*Result
}

func (s *sinkRecorder) sink(res *Result, _ time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
}

func (s *sinkRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func testFrame() *camera.Frame {
	return &camera.Frame{Data: []byte{0xff, 0xd8}, Timestamp: time.Now(), Width: 640, Height: 480}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never met")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSampler_TickAnalyzesFrame(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	rec := &sinkRecorder{}
	s := NewSampler(SamplerConfig{
		Source:   &fakeSource{frame: testFrame()},
		Analyzer: analyzer,
		Sink:     rec.sink,
		Logger:   testLogger(),
	})

	done := make(chan struct{})
	s.tick(context.Background(), done)

	waitFor(t, func() bool { return rec.count() == 1 })
	if analyzer.callCount() != 1 {
		t.Errorf("expected 1 analyze call, got %d", analyzer.callCount())
	}
}

func TestSampler_NilFrameSkipped(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	s := NewSampler(SamplerConfig{
		Source:   &fakeSource{},
		Analyzer: analyzer,
		Logger:   testLogger(),
	})

	done := make(chan struct{})
	s.tick(context.Background(), done)
	time.Sleep(10 * time.Millisecond)

	if analyzer.callCount() != 0 {
		t.Errorf("nil frame should skip analysis, got %d calls", analyzer.callCount())
	}
}

func TestSampler_AtMostOneInFlight(t *testing.T) {
	release := make(chan struct{})
	analyzer := &fakeAnalyzer{release: release}
	s := NewSampler(SamplerConfig{
		Source:   &fakeSource{frame: testFrame()},
		Analyzer: analyzer,
		Logger:   testLogger(),
	})

	done := make(chan struct{})
	s.tick(context.Background(), done)
	waitFor(t, func() bool { return analyzer.callCount() == 1 })

	// Ticks landing while an analysis is running are skipped.
	s.tick(context.Background(), done)
	s.tick(context.Background(), done)
	close(release)

	waitFor(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return !s.inflight
	})
	if analyzer.callCount() != 1 {
		t.Errorf("expected 1 analyze call, got %d", analyzer.callCount())
	}
}

func TestSampler_SkipsCyclesWhileDetectorUnavailable(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	status := &fakeStatus{available: false}
	s := NewSampler(SamplerConfig{
		Source:   &fakeSource{frame: testFrame()},
		Analyzer: analyzer,
		Status:   status,
		Interval: 10 * time.Millisecond,
		Logger:   testLogger(),
	})

	s.Start(context.Background())
	defer s.Stop()

	// Several interval boundaries pass with the detector down; every cycle
	// must be skipped, frames ready or not.
	time.Sleep(60 * time.Millisecond)
	if got := analyzer.callCount(); got != 0 {
		t.Fatalf("unavailable detector should skip the cycle, got %d analyze calls", got)
	}

	status.set(true)
	waitFor(t, func() bool { return analyzer.callCount() >= 1 })
}

func TestSampler_ErrorReportsFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("detector down")}
	reporter := &fakeReporter{}
	rec := &sinkRecorder{}
	s := NewSampler(SamplerConfig{
		Source:   &fakeSource{frame: testFrame()},
		Analyzer: analyzer,
		Health:   reporter,
		Sink:     rec.sink,
		Logger:   testLogger(),
	})

	done := make(chan struct{})
	s.tick(context.Background(), done)

	waitFor(t, func() bool {
		reporter.mu.Lock()
		defer reporter.mu.Unlock()
		return reporter.calls == 1
	})
	if rec.count() != 0 {
		t.Error("failed analysis should not reach the sink")
	}
}

func TestSampler_StopDiscardsInFlightResult(t *testing.T) {
	release := make(chan struct{})
	analyzer := &fakeAnalyzer{release: release}
	rec := &sinkRecorder{}
	s := NewSampler(SamplerConfig{
		Source:   &fakeSource{frame: testFrame()},
		Analyzer: analyzer,
		Sink:     rec.sink,
		Interval: time.Hour,
		Logger:   testLogger(),
	})

	s.Start(context.Background())
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	s.tick(context.Background(), done)
	waitFor(t, func() bool { return analyzer.callCount() == 1 })

	s.Stop()
	close(release)

	waitFor(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return !s.inflight
	})
	if rec.count() != 0 {
		t.Error("result completing after Stop must be discarded")
	}
}

func TestSampler_LoopRunsOnInterval(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	rec := &sinkRecorder{}
	s := NewSampler(SamplerConfig{
		Source:   &fakeSource{frame: testFrame()},
		Analyzer: analyzer,
		Sink:     rec.sink,
		Interval: 10 * time.Millisecond,
		Logger:   testLogger(),
	})

	s.Start(context.Background())
	defer s.Stop()

	// Three interval boundaries mean three analysis calls.
	waitFor(t, func() bool { return rec.count() >= 3 })
}

func TestSampler_StartIdempotent(t *testing.T) {
	s := NewSampler(SamplerConfig{
		Source:   &fakeSource{},
		Analyzer: &fakeAnalyzer{},
		Interval: time.Hour,
		Logger:   testLogger(),
	})

	s.Start(context.Background())
	s.Start(context.Background())
	if !s.Running() {
		t.Error("sampler should be running")
	}
	s.Stop()
	if s.Running() {
		t.Error("sampler should be stopped")
	}
	s.Stop()
}
