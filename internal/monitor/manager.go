package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/proctor-backend/internal/camera"
	"github.com/eleven-am/proctor-backend/internal/detection"
	"github.com/eleven-am/proctor-backend/internal/gateway"
	"github.com/eleven-am/proctor-backend/internal/session"
	"github.com/eleven-am/proctor-backend/internal/shared"
	"github.com/eleven-am/proctor-backend/internal/violation"
	"github.com/pion/webrtc/v4"
)

// Manager creates and tracks the live proctoring sessions on this
// instance.
type Manager struct {
	rtc      *RTC
	client   *detection.Client
	health   *detection.HealthMonitor
	pipeline *Pipeline
	store    *session.Store
	hub      *gateway.Hub
	log      *slog.Logger

	sampleInterval time.Duration
	readyTimeout   time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

type ManagerConfig struct {
	RTC            *RTC
	Client         *detection.Client
	Health         *detection.HealthMonitor
	Pipeline       *Pipeline
	Store          *session.Store
	Hub            *gateway.Hub
	SampleInterval time.Duration
	ReadyTimeout   time.Duration
	Logger         *slog.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	m := &Manager{
		rtc:            cfg.RTC,
		client:         cfg.Client,
		health:         cfg.Health,
		pipeline:       cfg.Pipeline,
		store:          cfg.Store,
		hub:            cfg.Hub,
		log:            cfg.Logger.With("component", "monitor-manager"),
		sampleInterval: cfg.SampleInterval,
		readyTimeout:   cfg.ReadyTimeout,
		sessions:       make(map[string]*Session),
	}

	// A depleted student gets disconnected, not just flagged.
	cfg.Pipeline.OnDepletion(func(d violation.Depletion) {
		if s := m.findByStudent(d.StudentID, d.ExamID); s != nil {
			s.Close("attempts_depleted")
		}
	})

	return m
}

// frameFailures routes analysis failures to both the detector health
// monitor and the per-exam failed-frame counter.
type frameFailures struct {
	health *detection.HealthMonitor
	store  *session.Store
	examID string
	log    *slog.Logger
}

func (f *frameFailures) ReportFailure(ctx context.Context) {
	if err := f.store.IncrementFramesFailed(ctx, f.examID); err != nil {
		f.log.Debug("failed to increment failed-frame counter", "error", err)
	}
	f.health.ReportFailure(ctx)
}

type StartRequest struct {
	StudentID   string
	StudentName string
	ExamID      string
	Offer       string
}

type StartResult struct {
	SessionID string
	Answer    string
}

func (m *Manager) StartSession(ctx context.Context, req StartRequest) (*StartResult, error) {
	peer, err := m.rtc.NewPeer()
	if err != nil {
		return nil, err
	}

	sess := &session.Session{
		StudentID:   req.StudentID,
		StudentName: req.StudentName,
		ExamID:      req.ExamID,
		CameraState: string(camera.StateIdle),
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		_ = peer.Close()
		return nil, err
	}

	s := &Session{
		ID:          sess.ID,
		StudentID:   req.StudentID,
		StudentName: req.StudentName,
		ExamID:      req.ExamID,
		peer:        peer,
		log:         m.log.With("session_id", sess.ID, "student_id", req.StudentID),
		done:        make(chan struct{}),
	}

	s.platform = camera.NewRemotePlatform(camera.RemotePlatformConfig{
		Control: s,
		Logger:  s.log,
	})
	s.cameraMgr = camera.NewManager(camera.ManagerConfig{
		Platform:     s.platform,
		ReadyTimeout: m.readyTimeout,
		Logger:       s.log,
	})
	s.sampler = detection.NewSampler(detection.SamplerConfig{
		Source:   s.cameraMgr,
		Analyzer: m.client,
		Health:   &frameFailures{health: m.health, store: m.store, examID: req.ExamID, log: s.log},
		Status:   m.health,
		Sink:     m.pipeline.SinkFor(req.StudentID, req.ExamID),
		Interval: m.sampleInterval,
		Logger:   s.log,
	})
	s.onClosed = func(reason string) {
		m.removeSession(s, reason)
	}

	// The request context dies with the HTTP call; the session outlives it.
	sessionCtx := context.Background()

	peer.OnVideo(s.platform.HandleRTPPacket)
	peer.OnDataChannel(func(dc *webrtc.DataChannel) {
		s.setupDataChannel(sessionCtx, dc)
	})
	peer.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c != nil {
			s.sendICECandidate(c.ToJSON())
		}
	})
	peer.OnFailed(func() { s.Close("connection_failed") })

	if err := peer.SetOffer(req.Offer); err != nil {
		s.Close("bad_offer")
		return nil, err
	}
	answer, err := peer.CreateAnswer()
	if err != nil {
		s.Close("answer_failed")
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.pipeline.RegisterStudent(req.StudentID, req.StudentName)
	if err := m.store.IncrementSessions(ctx, req.ExamID); err != nil {
		m.log.Debug("failed to increment session counter", "error", err)
	}

	go m.watchCameraState(sessionCtx, s)

	m.hub.Broadcast(gateway.NewEvent(gateway.EventSession, sess))
	m.log.Info("session started", "session_id", s.ID, "exam_id", req.ExamID)

	return &StartResult{SessionID: s.ID, Answer: answer}, nil
}

// watchCameraState mirrors camera transitions into redis and onto the
// dashboard until the session ends.
func (m *Manager) watchCameraState(ctx context.Context, s *Session) {
	for {
		select {
		case change := <-s.cameraMgr.Events():
			if sess, err := m.store.GetSession(ctx, s.ID); err == nil {
				sess.CameraState = string(change.To)
				if err := m.store.UpdateSession(ctx, sess); err != nil {
					s.log.Debug("failed to update session state", "error", err)
				}
				m.hub.Broadcast(gateway.NewEvent(gateway.EventSession, sess))
			}
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) EndSession(id, reason string) error {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return shared.ErrNotFound
	}

	s.Close(reason)
	return nil
}

func (m *Manager) SwitchCamera(ctx context.Context, id string) error {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return shared.ErrNotFound
	}
	return s.SwitchCamera(ctx)
}

func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) findByStudent(studentID, examID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.StudentID == studentID && s.ExamID == examID {
			return s
		}
	}
	return nil
}

func (m *Manager) removeSession(s *Session, reason string) {
	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	m.pipeline.UnregisterStudent(s.StudentID)

	ctx := context.Background()
	status := session.StatusEnded
	if reason == "connection_failed" {
		status = session.StatusError
	}
	if err := m.store.EndSession(ctx, s.ID, status); err != nil {
		m.log.Debug("failed to end session in registry", "error", err, "session_id", s.ID)
	}

	if sess, err := m.store.GetSession(ctx, s.ID); err == nil {
		m.hub.Broadcast(gateway.NewEvent(gateway.EventSession, sess))
	}
}

// Shutdown closes every live session, used on server stop.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		s.Close("server_shutdown")
	}
}
