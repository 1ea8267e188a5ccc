package camera

import (
	"context"
	"time"
)

type ConnectionState string

const (
	StateIdle       ConnectionState = "idle"
	StateRequesting ConnectionState = "requesting"
	StateConnected  ConnectionState = "connected"
	StateError      ConnectionState = "error"
)

// Constraints mirrors the acquisition parameters the student client applies
// to its capture device. Width/Height/FrameRate are ideals, not minimums.
type Constraints struct {
	Width            int    `json:"width,omitempty"`
	Height           int    `json:"height,omitempty"`
	FrameRate        int    `json:"frame_rate,omitempty"`
	FacingMode       string `json:"facing_mode,omitempty"`
	Audio            bool   `json:"audio"`
	EchoCancellation bool   `json:"echo_cancellation,omitempty"`
	NoiseSuppression bool   `json:"noise_suppression,omitempty"`
}

func DefaultConstraints() Constraints {
	return Constraints{
		Width:            1280,
		Height:           720,
		FrameRate:        24,
		FacingMode:       "user",
		Audio:            true,
		EchoCancellation: true,
		NoiseSuppression: true,
	}
}

// MinimalConstraints is the fallback applied when the device rejects the
// default set: facing mode only, plain audio.
func MinimalConstraints() Constraints {
	return Constraints{
		FacingMode: "user",
		Audio:      true,
	}
}

type Device struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// Frame is a single encoded still (JPEG) read from the live stream.
type Frame struct {
	Data      []byte
	Timestamp time.Time
	Width     int
	Height    int
}

// Stream is a live video source. LatestFrame returns nil until the first
// decodable frame has arrived; Ready is closed at that same moment.
type Stream interface {
	DeviceID() string
	LatestFrame() *Frame
	Dimensions() (width, height int)
	Ready() <-chan struct{}
	Close() error
}

// Platform abstracts the capture side: device enumeration and stream
// acquisition. The production implementation reaches the student's browser
// over WebRTC; tests substitute an in-process fake.
type Platform interface {
	Supported() bool
	EnumerateDevices(ctx context.Context) ([]Device, error)
	OpenStream(ctx context.Context, deviceID string, c Constraints) (Stream, error)
}

type StateChange struct {
	From ConnectionState `json:"from"`
	To   ConnectionState `json:"to"`
	// Message carries the user-facing error text when To == StateError.
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}
