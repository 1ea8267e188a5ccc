package detection

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Prober is the health side of the detector client.
type Prober interface {
	Probe(ctx context.Context) bool
}

// HealthAlert is emitted on every availability transition, in either
// direction. Repeated polls in the same state stay silent.
type HealthAlert struct {
	Available bool      `json:"available"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthMonitor polls the detector on a fixed interval and reports
// transitions. Until the first probe completes the detector is assumed
// available, so a healthy start produces no alert.
type HealthMonitor struct {
	prober   Prober
	interval time.Duration
	log      *slog.Logger

	mu          sync.Mutex
	available   bool
	lastChecked time.Time

	alerts   chan HealthAlert
	stopOnce sync.Once
	done     chan struct{}
}

type HealthMonitorConfig struct {
	Prober   Prober
	Interval time.Duration
	Logger   *slog.Logger
}

func NewHealthMonitor(cfg HealthMonitorConfig) *HealthMonitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultHealthInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &HealthMonitor{
		prober:    cfg.Prober,
		interval:  cfg.Interval,
		log:       cfg.Logger.With("component", "detector-health"),
		available: true,
		alerts:    make(chan HealthAlert, 8),
		done:      make(chan struct{}),
	}
}

// Alerts delivers transition alerts. Sends are non-blocking; with no
// consumer the alert is dropped, not queued forever.
func (m *HealthMonitor) Alerts() <-chan HealthAlert {
	return m.alerts
}

func (m *HealthMonitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.check(ctx)
			case <-m.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *HealthMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

func (m *HealthMonitor) Health() ServerHealth {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ServerHealth{Available: m.available, LastCheckedAt: m.lastChecked}
}

// ReportFailure triggers an immediate out-of-band probe after a failed
// analysis call, rather than waiting for the next poll boundary.
func (m *HealthMonitor) ReportFailure(ctx context.Context) {
	m.check(ctx)
}

func (m *HealthMonitor) check(ctx context.Context) {
	healthy := m.prober.Probe(ctx)
	now := time.Now()

	m.mu.Lock()
	transition := healthy != m.available
	m.available = healthy
	m.lastChecked = now
	m.mu.Unlock()

	if !transition {
		return
	}

	alert := HealthAlert{Available: healthy, Timestamp: now}
	if healthy {
		alert.Message = "Detection server connection restored"
		m.log.Info("detector recovered")
	} else {
		alert.Message = "Detection server is unreachable"
		m.log.Warn("detector unavailable")
	}

	select {
	case m.alerts <- alert:
	default:
	}
}
