package camera

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const defaultReadyTimeout = 5 * time.Second

// Manager owns at most one live stream and drives the
// idle -> requesting -> connected -> (error | idle) state machine.
// No other component touches the underlying stream directly.
type Manager struct {
	platform     Platform
	readyTimeout time.Duration
	log          *slog.Logger

	mu          sync.Mutex
	state       ConnectionState
	stream      Stream
	deviceID    string
	constraints Constraints
	lastError   string
	// epoch invalidates an in-flight acquisition when a newer Start or a
	// Stop takes over the session.
	epoch uint64

	events chan StateChange
}

type ManagerConfig struct {
	Platform     Platform
	ReadyTimeout time.Duration
	Logger       *slog.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Manager{
		platform:     cfg.Platform,
		readyTimeout: cfg.ReadyTimeout,
		log:          cfg.Logger.With("component", "camera-manager"),
		state:        StateIdle,
		events:       make(chan StateChange, 16),
	}
}

// Events reports every state transition. Sends are non-blocking: with no
// consumer (or a slow one) transitions are dropped, never an error.
func (m *Manager) Events() <-chan StateChange {
	return m.events
}

func (m *Manager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

func (m *Manager) DeviceID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deviceID
}

// CheckAvailability probes for video input devices without touching any
// session state.
func (m *Manager) CheckAvailability(ctx context.Context) ([]Device, error) {
	if m.platform == nil || !m.platform.Supported() {
		return nil, ErrUnsupported
	}

	devices, err := m.platform.EnumerateDevices(ctx)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, ErrNoCamera
	}
	return devices, nil
}

// Start acquires a stream for the given constraints, stopping any prior
// stream first. On a constraints failure it retries once with the minimal
// set before surfacing the error.
func (m *Manager) Start(ctx context.Context, c Constraints) error {
	return m.start(ctx, "", c)
}

func (m *Manager) start(ctx context.Context, deviceID string, c Constraints) error {
	m.mu.Lock()
	if m.platform == nil || !m.platform.Supported() {
		m.failLocked(ErrUnsupported)
		m.mu.Unlock()
		return ErrUnsupported
	}

	m.stopLocked()
	m.setStateLocked(StateRequesting, "")
	m.epoch++
	epoch := m.epoch
	m.mu.Unlock()

	// Acquisition runs unlocked so State and Snapshot stay responsive
	// through the readiness wait.
	stream, err := m.platform.OpenStream(ctx, deviceID, c)
	if errors.Is(err, ErrConstraints) {
		m.log.Warn("constraints rejected, retrying with minimal set", "device_id", deviceID)
		c = MinimalConstraints()
		stream, err = m.platform.OpenStream(ctx, deviceID, c)
	}
	if err == nil {
		select {
		case <-stream.Ready():
		case <-time.After(m.readyTimeout):
			_ = stream.Close()
			stream, err = nil, ErrVideoLoadTimeout
		case <-ctx.Done():
			_ = stream.Close()
			stream, err = nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if epoch != m.epoch {
		if stream != nil {
			_ = stream.Close()
		}
		if err == nil {
			err = ErrSuperseded
		}
		return err
	}
	if err != nil {
		m.failLocked(err)
		return err
	}

	m.stream = stream
	m.deviceID = stream.DeviceID()
	m.constraints = c
	m.setStateLocked(StateConnected, "")
	m.log.Info("camera connected", "device_id", m.deviceID)
	return nil
}

// Stop releases the stream. Safe to call in any state; stopping with no
// active session is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	if m.stream == nil && m.state == StateIdle {
		return
	}
	m.stopLocked()
	m.setStateLocked(StateIdle, "")
}

// SwitchDevice moves the session to a different video input. With fewer
// than two devices it fails with ErrOnlyOneDevice and the current stream
// is left untouched.
func (m *Manager) SwitchDevice(ctx context.Context) error {
	devices, err := m.CheckAvailability(ctx)
	if err != nil {
		return err
	}
	if len(devices) < 2 {
		return ErrOnlyOneDevice
	}

	m.mu.Lock()
	current := m.deviceID
	constraints := m.constraints
	m.mu.Unlock()

	var next string
	for _, d := range devices {
		if d.ID != current {
			next = d.ID
			break
		}
	}

	if constraints == (Constraints{}) {
		constraints = DefaultConstraints()
	}
	return m.start(ctx, next, constraints)
}

// Snapshot returns the most recent still from the live stream, or nil when
// no session is active or no frame has been decoded yet. It never mutates
// session state.
func (m *Manager) Snapshot() *Frame {
	m.mu.Lock()
	stream := m.stream
	m.mu.Unlock()

	if stream == nil {
		return nil
	}
	return stream.LatestFrame()
}

// CaptureFrame implements the sampler's frame source: nil (not an error)
// when the stream has no decodable dimensions yet.
func (m *Manager) CaptureFrame() *Frame {
	frame := m.Snapshot()
	if frame == nil || frame.Width == 0 || frame.Height == 0 {
		return nil
	}
	return frame
}

func (m *Manager) stopLocked() {
	if m.stream != nil {
		if err := m.stream.Close(); err != nil {
			m.log.Debug("stream close failed", "error", err)
		}
		m.stream = nil
	}
	m.deviceID = ""
}

func (m *Manager) failLocked(err error) {
	m.stopLocked()
	m.setStateLocked(StateError, UserMessage(err))
}

func (m *Manager) setStateLocked(next ConnectionState, message string) {
	if m.state == next && message == m.lastError {
		return
	}
	change := StateChange{From: m.state, To: next, Message: message, At: time.Now()}
	m.state = next
	m.lastError = message

	select {
	case m.events <- change:
	default:
	}
}
