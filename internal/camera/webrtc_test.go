package camera

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeControl struct {
	mu   sync.Mutex
	sent []controlMessage
	err  error
}

func (c *fakeControl) SendControl(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg.(controlMessage))
	return nil
}

func (c *fakeControl) last() controlMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return controlMessage{}
	}
	return c.sent[len(c.sent)-1]
}

func announce(p *RemotePlatform, devices ...Device) {
	msg := controlMessage{Type: "camera.devices", Devices: devices}
	data, _ := json.Marshal(msg)
	p.HandleControl(data)
}

func newTestPlatform(control *fakeControl) *RemotePlatform {
	return NewRemotePlatform(RemotePlatformConfig{
		Control:    control,
		AckTimeout: 100 * time.Millisecond,
		Logger:     testLogger(),
	})
}

func TestRemotePlatform_UnsupportedBeforeAnnounce(t *testing.T) {
	p := newTestPlatform(&fakeControl{})
	if p.Supported() {
		t.Error("platform should be unsupported before the client announces devices")
	}

	announce(p, Device{ID: "cam-1", Label: "Front"})
	if !p.Supported() {
		t.Error("platform should be supported after the announcement")
	}
}

func TestRemotePlatform_EnumerateDevices(t *testing.T) {
	p := newTestPlatform(&fakeControl{})
	announce(p, Device{ID: "cam-1"}, Device{ID: "cam-2"})

	devices, err := p.EnumerateDevices(context.Background())
	if err != nil {
		t.Fatalf("EnumerateDevices() error = %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
}

func TestRemotePlatform_OpenStream_UnknownDevice(t *testing.T) {
	p := newTestPlatform(&fakeControl{})
	announce(p, Device{ID: "cam-1"})

	_, err := p.OpenStream(context.Background(), "cam-9", DefaultConstraints())
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestRemotePlatform_OpenStream_Acked(t *testing.T) {
	control := &fakeControl{}
	p := newTestPlatform(control)
	announce(p, Device{ID: "cam-1"})

	done := make(chan struct{})
	var stream Stream
	var err error
	go func() {
		stream, err = p.OpenStream(context.Background(), "", DefaultConstraints())
		close(done)
	}()

	// Wait for the select command, then ack like the client would.
	deadline := time.Now().Add(time.Second)
	for control.last().Type != "camera.select" {
		if time.Now().After(deadline) {
			t.Fatal("camera.select was never sent")
		}
		time.Sleep(time.Millisecond)
	}
	p.HandleControl([]byte(`{"type":"camera.ready","device_id":"cam-1"}`))

	<-done
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	if stream.DeviceID() != "cam-1" {
		t.Errorf("expected default device cam-1, got %s", stream.DeviceID())
	}
}

func TestRemotePlatform_OpenStream_ClientError(t *testing.T) {
	control := &fakeControl{}
	p := newTestPlatform(control)
	announce(p, Device{ID: "cam-1"})

	done := make(chan error, 1)
	go func() {
		_, err := p.OpenStream(context.Background(), "cam-1", DefaultConstraints())
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for control.last().Type != "camera.select" {
		if time.Now().After(deadline) {
			t.Fatal("camera.select was never sent")
		}
		time.Sleep(time.Millisecond)
	}
	p.HandleControl([]byte(`{"type":"camera.error","code":"overconstrained"}`))

	if err := <-done; !errors.Is(err, ErrConstraints) {
		t.Errorf("expected ErrConstraints, got %v", err)
	}
}

func TestRemotePlatform_OpenStream_AckTimeout(t *testing.T) {
	p := newTestPlatform(&fakeControl{})
	announce(p, Device{ID: "cam-1"})

	_, err := p.OpenStream(context.Background(), "cam-1", DefaultConstraints())
	if !errors.Is(err, ErrVideoLoadTimeout) {
		t.Errorf("expected ErrVideoLoadTimeout, got %v", err)
	}
}

func TestMapClientError(t *testing.T) {
	cases := map[string]error{
		"permission_denied": ErrPermissionDenied,
		"not_allowed":       ErrPermissionDenied,
		"not_found":         ErrDeviceNotFound,
		"busy":              ErrDeviceBusy,
		"not_readable":      ErrDeviceBusy,
		"overconstrained":   ErrConstraints,
		"unsupported":       ErrUnsupported,
	}
	for code, want := range cases {
		if got := mapClientError(code); !errors.Is(got, want) {
			t.Errorf("code %s: expected %v, got %v", code, want, got)
		}
	}
	if got := mapClientError("weird"); got == nil {
		t.Error("unknown codes should still produce an error")
	}
}

func TestRemoteStream_ClosedDropsPackets(t *testing.T) {
	s := newRemoteStream("cam-1", NewVPXDecoder(), time.Millisecond, testLogger())
	_ = s.Close()
	s.handleRTP([]byte{0x01, 0x02}, "video/VP8")

	if s.LatestFrame() != nil {
		t.Error("closed stream should not produce frames")
	}
}
