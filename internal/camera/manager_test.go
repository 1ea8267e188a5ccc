package camera

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type fakeStream struct {
	deviceID string
	frame    *Frame
	ready    chan struct{}
	closed   bool
}

func newFakeStream(deviceID string, frame *Frame) *fakeStream {
	s := &fakeStream{deviceID: deviceID, frame: frame, ready: make(chan struct{})}
	close(s.ready)
	return s
}

func (s *fakeStream) DeviceID() string        { return s.deviceID }
func (s *fakeStream) LatestFrame() *Frame     { return s.frame }
func (s *fakeStream) Ready() <-chan struct{}  { return s.ready }
func (s *fakeStream) Close() error            { s.closed = true; return nil }
func (s *fakeStream) Dimensions() (int, int) {
	if s.frame == nil {
		return 0, 0
	}
	return s.frame.Width, s.frame.Height
}

type fakePlatform struct {
	supported  bool
	devices    []Device
	openErr    error
	openErrs   []error
	openCalls  int
	lastDevice string
	lastCons   Constraints
	stream     *fakeStream
	neverReady bool
}

func (p *fakePlatform) Supported() bool { return p.supported }

func (p *fakePlatform) EnumerateDevices(context.Context) ([]Device, error) {
	return p.devices, nil
}

func (p *fakePlatform) OpenStream(_ context.Context, deviceID string, c Constraints) (Stream, error) {
	p.openCalls++
	p.lastDevice = deviceID
	p.lastCons = c

	if len(p.openErrs) > 0 {
		err := p.openErrs[0]
		p.openErrs = p.openErrs[1:]
		if err != nil {
			return nil, err
		}
	} else if p.openErr != nil {
		return nil, p.openErr
	}

	if deviceID == "" && len(p.devices) > 0 {
		deviceID = p.devices[0].ID
	}

	frame := &Frame{Data: []byte("jpeg"), Timestamp: time.Now(), Width: 640, Height: 480}
	stream := newFakeStream(deviceID, frame)
	if p.neverReady {
		stream.ready = make(chan struct{})
	}
	p.stream = stream
	return stream, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(p Platform) *Manager {
	return NewManager(ManagerConfig{
		Platform:     p,
		ReadyTimeout: 50 * time.Millisecond,
		Logger:       testLogger(),
	})
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(ManagerConfig{Platform: &fakePlatform{}})
	if m == nil {
		t.Fatal("NewManager should not return nil")
	}
	if m.readyTimeout != defaultReadyTimeout {
		t.Errorf("expected default ready timeout %v, got %v", defaultReadyTimeout, m.readyTimeout)
	}
	if m.State() != StateIdle {
		t.Errorf("expected initial state idle, got %s", m.State())
	}
}

func TestCheckAvailability_Unsupported(t *testing.T) {
	m := newTestManager(&fakePlatform{supported: false})
	_, err := m.CheckAvailability(context.Background())
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestCheckAvailability_NoDevices(t *testing.T) {
	m := newTestManager(&fakePlatform{supported: true})
	_, err := m.CheckAvailability(context.Background())
	if !errors.Is(err, ErrNoCamera) {
		t.Errorf("expected ErrNoCamera, got %v", err)
	}
}

func TestCheckAvailability_ReadOnly(t *testing.T) {
	p := &fakePlatform{supported: true, devices: []Device{{ID: "cam-1"}}}
	m := newTestManager(p)

	devices, err := m.CheckAvailability(context.Background())
	if err != nil {
		t.Fatalf("CheckAvailability() error = %v", err)
	}
	if len(devices) != 1 {
		t.Errorf("expected 1 device, got %d", len(devices))
	}
	if p.openCalls != 0 {
		t.Error("availability probe must not open a stream")
	}
	if m.State() != StateIdle {
		t.Errorf("availability probe must not change state, got %s", m.State())
	}
}

func TestStart_Connects(t *testing.T) {
	p := &fakePlatform{supported: true, devices: []Device{{ID: "cam-1"}}}
	m := newTestManager(p)

	if err := m.Start(context.Background(), DefaultConstraints()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if m.State() != StateConnected {
		t.Errorf("expected connected, got %s", m.State())
	}
	if m.DeviceID() != "cam-1" {
		t.Errorf("expected device cam-1, got %s", m.DeviceID())
	}
}

func TestStart_ConstraintsFallback(t *testing.T) {
	p := &fakePlatform{
		supported: true,
		devices:   []Device{{ID: "cam-1"}},
		openErrs:  []error{ErrConstraints, nil},
	}
	m := newTestManager(p)

	if err := m.Start(context.Background(), DefaultConstraints()); err != nil {
		t.Fatalf("Start() should fall back on constraint failure, got %v", err)
	}
	if p.openCalls != 2 {
		t.Errorf("expected 2 open attempts, got %d", p.openCalls)
	}
	if p.lastCons != MinimalConstraints() {
		t.Errorf("retry should use minimal constraints, got %+v", p.lastCons)
	}
}

func TestStart_ConstraintsFallbackAlsoFails(t *testing.T) {
	p := &fakePlatform{
		supported: true,
		devices:   []Device{{ID: "cam-1"}},
		openErrs:  []error{ErrConstraints, ErrConstraints},
	}
	m := newTestManager(p)

	err := m.Start(context.Background(), DefaultConstraints())
	if !errors.Is(err, ErrConstraints) {
		t.Errorf("expected ErrConstraints, got %v", err)
	}
	if m.State() != StateError {
		t.Errorf("expected error state, got %s", m.State())
	}
}

func TestStart_PermissionDenied(t *testing.T) {
	p := &fakePlatform{supported: true, devices: []Device{{ID: "cam-1"}}, openErr: ErrPermissionDenied}
	m := newTestManager(p)

	err := m.Start(context.Background(), DefaultConstraints())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
	if m.LastError() != ErrPermissionDenied.Error() {
		t.Errorf("last error should be the fixed message, got %q", m.LastError())
	}
}

func TestStart_ErrorStateNotSticky(t *testing.T) {
	p := &fakePlatform{supported: true, devices: []Device{{ID: "cam-1"}}, openErr: ErrDeviceBusy}
	m := newTestManager(p)

	if err := m.Start(context.Background(), DefaultConstraints()); err == nil {
		t.Fatal("first start should fail")
	}
	if m.State() != StateError {
		t.Fatalf("expected error state, got %s", m.State())
	}

	p.openErr = nil
	if err := m.Start(context.Background(), DefaultConstraints()); err != nil {
		t.Fatalf("start after error should succeed, got %v", err)
	}
	if m.State() != StateConnected {
		t.Errorf("expected connected, got %s", m.State())
	}
}

func TestStart_ReplacesPriorStream(t *testing.T) {
	p := &fakePlatform{supported: true, devices: []Device{{ID: "cam-1"}}}
	m := newTestManager(p)

	_ = m.Start(context.Background(), DefaultConstraints())
	first := p.stream

	if err := m.Start(context.Background(), DefaultConstraints()); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	if !first.closed {
		t.Error("prior stream should be closed on restart")
	}
	if m.State() != StateConnected {
		t.Errorf("expected connected, got %s", m.State())
	}
}

func TestStart_ReadyTimeout(t *testing.T) {
	p := &fakePlatform{supported: true, devices: []Device{{ID: "cam-1"}}, neverReady: true}
	m := newTestManager(p)

	err := m.Start(context.Background(), DefaultConstraints())
	if !errors.Is(err, ErrVideoLoadTimeout) {
		t.Errorf("expected ErrVideoLoadTimeout, got %v", err)
	}
	if !p.stream.closed {
		t.Error("stream should be released after a readiness timeout")
	}
	if m.State() != StateError {
		t.Errorf("expected error state, got %s", m.State())
	}
}

func TestStop_Idempotent(t *testing.T) {
	p := &fakePlatform{supported: true, devices: []Device{{ID: "cam-1"}}}
	m := newTestManager(p)

	m.Stop()
	if m.State() != StateIdle {
		t.Errorf("stop with no session should stay idle, got %s", m.State())
	}

	_ = m.Start(context.Background(), DefaultConstraints())
	m.Stop()
	m.Stop()

	if m.State() != StateIdle {
		t.Errorf("expected idle after stop, got %s", m.State())
	}
	if !p.stream.closed {
		t.Error("stream should be closed after stop")
	}
}

func TestSwitchDevice_OnlyOneDevice(t *testing.T) {
	p := &fakePlatform{supported: true, devices: []Device{{ID: "cam-1"}}}
	m := newTestManager(p)
	_ = m.Start(context.Background(), DefaultConstraints())

	stream := p.stream
	calls := p.openCalls

	err := m.SwitchDevice(context.Background())
	if !errors.Is(err, ErrOnlyOneDevice) {
		t.Errorf("expected ErrOnlyOneDevice, got %v", err)
	}
	if stream.closed {
		t.Error("existing stream must be untouched on a failed switch")
	}
	if p.openCalls != calls {
		t.Error("failed switch must not open a new stream")
	}
	if m.State() != StateConnected {
		t.Errorf("expected connected, got %s", m.State())
	}
}

func TestSwitchDevice_MovesToOtherDevice(t *testing.T) {
	p := &fakePlatform{supported: true, devices: []Device{{ID: "cam-1"}, {ID: "cam-2"}}}
	m := newTestManager(p)
	_ = m.Start(context.Background(), DefaultConstraints())

	if err := m.SwitchDevice(context.Background()); err != nil {
		t.Fatalf("SwitchDevice() error = %v", err)
	}
	if m.DeviceID() != "cam-2" {
		t.Errorf("expected cam-2 after switch, got %s", m.DeviceID())
	}
}

func waitForState(t *testing.T, m *Manager, want ConnectionState) {
	t.Helper()
	deadline := time.Now().Add(40 * time.Millisecond)
	for m.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state never became %s, is %s", want, m.State())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestState_ObservableDuringAcquisition(t *testing.T) {
	p := &fakePlatform{supported: true, devices: []Device{{ID: "cam-1"}}, neverReady: true}
	m := newTestManager(p)

	errc := make(chan error, 1)
	go func() { errc <- m.Start(context.Background(), DefaultConstraints()) }()

	// Pollers see the requesting phase while the readiness wait runs.
	waitForState(t, m, StateRequesting)
	if m.Snapshot() != nil {
		t.Error("no frame should exist during acquisition")
	}

	if err := <-errc; !errors.Is(err, ErrVideoLoadTimeout) {
		t.Errorf("expected ErrVideoLoadTimeout, got %v", err)
	}
}

func TestStop_SupersedesInFlightStart(t *testing.T) {
	p := &fakePlatform{supported: true, devices: []Device{{ID: "cam-1"}}, neverReady: true}
	m := newTestManager(p)

	errc := make(chan error, 1)
	go func() { errc <- m.Start(context.Background(), DefaultConstraints()) }()

	waitForState(t, m, StateRequesting)
	m.Stop()

	if err := <-errc; err == nil {
		t.Fatal("superseded start should report an error")
	}
	if m.State() != StateIdle {
		t.Errorf("stop must win over the superseded start, got %s", m.State())
	}
}

func TestSnapshot_NilWithoutSession(t *testing.T) {
	m := newTestManager(&fakePlatform{supported: true, devices: []Device{{ID: "cam-1"}}})
	if m.Snapshot() != nil {
		t.Error("snapshot without a session should be nil")
	}
}

func TestSnapshot_ReturnsFrame(t *testing.T) {
	p := &fakePlatform{supported: true, devices: []Device{{ID: "cam-1"}}}
	m := newTestManager(p)
	_ = m.Start(context.Background(), DefaultConstraints())

	frame := m.Snapshot()
	if frame == nil {
		t.Fatal("expected a frame")
	}
	if string(frame.Data) != "jpeg" {
		t.Errorf("unexpected frame data %q", frame.Data)
	}
	if m.State() != StateConnected {
		t.Error("snapshot must not mutate session state")
	}
}

func TestCaptureFrame_NilWithoutDimensions(t *testing.T) {
	p := &fakePlatform{supported: true, devices: []Device{{ID: "cam-1"}}}
	m := newTestManager(p)
	_ = m.Start(context.Background(), DefaultConstraints())

	p.stream.frame = &Frame{Data: []byte("x")}
	if m.CaptureFrame() != nil {
		t.Error("capture should be nil while dimensions are unknown")
	}
}

func TestEvents_TransitionsPublished(t *testing.T) {
	p := &fakePlatform{supported: true, devices: []Device{{ID: "cam-1"}}}
	m := newTestManager(p)

	_ = m.Start(context.Background(), DefaultConstraints())
	m.Stop()

	var states []ConnectionState
	for {
		select {
		case ev := <-m.Events():
			states = append(states, ev.To)
			continue
		default:
		}
		break
	}

	want := []ConnectionState{StateRequesting, StateConnected, StateIdle}
	if len(states) != len(want) {
		t.Fatalf("expected %d transitions, got %d (%v)", len(want), len(states), states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], states[i])
		}
	}
}

func TestEvents_NoSubscriberIsNoOp(t *testing.T) {
	p := &fakePlatform{supported: true, devices: []Device{{ID: "cam-1"}}}
	m := newTestManager(p)

	// Overflow the event buffer with nobody draining it; transitions must
	// be dropped silently rather than block.
	for i := 0; i < 40; i++ {
		_ = m.Start(context.Background(), DefaultConstraints())
		m.Stop()
	}
	if m.State() != StateIdle {
		t.Errorf("expected idle, got %s", m.State())
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(ErrDeviceBusy); got != ErrDeviceBusy.Error() {
		t.Errorf("expected fixed busy message, got %q", got)
	}
	if got := UserMessage(errors.New("NotReadableError: hw fault")); got != "could not access the camera" {
		t.Errorf("raw platform text must not leak, got %q", got)
	}
	if got := UserMessage(nil); got != "" {
		t.Errorf("expected empty message for nil, got %q", got)
	}
}
