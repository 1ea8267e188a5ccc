package camera

import (
	"bytes"
	"context"
	"encoding/json"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4/pkg/media/samplebuilder"
)

const (
	defaultAckTimeout  = 10 * time.Second
	defaultCaptureRate = time.Second
	jpegQuality        = 80
)

// ControlSender delivers a JSON control message to the student client,
// normally over the session's WebRTC data channel.
type ControlSender interface {
	SendControl(msg any) error
}

type controlMessage struct {
	Type        string       `json:"type"`
	DeviceID    string       `json:"device_id,omitempty"`
	Code        string       `json:"code,omitempty"`
	Devices     []Device     `json:"devices,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty"`
}

// RemotePlatform is the production Platform: the capture hardware lives in
// the student's browser, reached through a WebRTC peer. The client
// announces its video inputs over the data channel; frames arrive as RTP
// and are decoded into JPEG stills.
type RemotePlatform struct {
	control     ControlSender
	decoder     VideoDecoder
	captureRate time.Duration
	ackTimeout  time.Duration
	log         *slog.Logger

	mu        sync.Mutex
	announced bool
	devices   []Device
	active    *remoteStream
	ack       chan error
}

type RemotePlatformConfig struct {
	Control     ControlSender
	Decoder     VideoDecoder
	CaptureRate time.Duration
	AckTimeout  time.Duration
	Logger      *slog.Logger
}

func NewRemotePlatform(cfg RemotePlatformConfig) *RemotePlatform {
	if cfg.CaptureRate <= 0 {
		cfg.CaptureRate = defaultCaptureRate
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = defaultAckTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Decoder == nil {
		cfg.Decoder = NewVPXDecoder()
	}

	return &RemotePlatform{
		control:     cfg.Control,
		decoder:     cfg.Decoder,
		captureRate: cfg.CaptureRate,
		ackTimeout:  cfg.AckTimeout,
		log:         cfg.Logger.With("component", "remote-platform"),
	}
}

// Supported reports whether the client has announced its capture devices
// yet. Before the announcement the capture API is treated as absent.
func (p *RemotePlatform) Supported() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.announced
}

func (p *RemotePlatform) EnumerateDevices(_ context.Context) ([]Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Device, len(p.devices))
	copy(out, p.devices)
	return out, nil
}

func (p *RemotePlatform) OpenStream(ctx context.Context, deviceID string, c Constraints) (Stream, error) {
	p.mu.Lock()
	if deviceID == "" && len(p.devices) > 0 {
		deviceID = p.devices[0].ID
	}
	found := false
	for _, d := range p.devices {
		if d.ID == deviceID {
			found = true
			break
		}
	}
	if !found {
		p.mu.Unlock()
		return nil, ErrDeviceNotFound
	}

	if p.active != nil {
		p.closeActiveLocked()
	}

	ack := make(chan error, 1)
	p.ack = ack
	p.mu.Unlock()

	msg := controlMessage{Type: "camera.select", DeviceID: deviceID, Constraints: &c}
	if err := p.control.SendControl(msg); err != nil {
		return nil, ErrDeviceNotFound
	}

	timer := time.NewTimer(p.ackTimeout)
	defer timer.Stop()

	select {
	case err := <-ack:
		if err != nil {
			return nil, err
		}
	case <-timer.C:
		return nil, ErrVideoLoadTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	stream := newRemoteStream(deviceID, p.decoder, p.captureRate, p.log)
	stream.onClose = func() {
		p.mu.Lock()
		if p.active == stream {
			p.active = nil
		}
		p.mu.Unlock()
		_ = p.control.SendControl(controlMessage{Type: "camera.stop", DeviceID: deviceID})
	}

	p.mu.Lock()
	p.active = stream
	p.mu.Unlock()
	return stream, nil
}

// HandleRTPPacket feeds an incoming video RTP payload to the active stream.
// Packets arriving with no stream open are dropped.
func (p *RemotePlatform) HandleRTPPacket(payload []byte, mimeType string) {
	p.mu.Lock()
	stream := p.active
	p.mu.Unlock()

	if stream != nil {
		stream.handleRTP(payload, mimeType)
	}
}

// HandleControl routes a data-channel message from the student client.
func (p *RemotePlatform) HandleControl(data []byte) {
	var msg controlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		p.log.Debug("bad control message", "error", err)
		return
	}

	switch msg.Type {
	case "camera.devices":
		p.mu.Lock()
		p.announced = true
		p.devices = msg.Devices
		p.mu.Unlock()
	case "camera.ready":
		p.resolveAck(nil)
	case "camera.error":
		p.resolveAck(mapClientError(msg.Code))
	}
}

func (p *RemotePlatform) resolveAck(err error) {
	p.mu.Lock()
	ack := p.ack
	p.ack = nil
	p.mu.Unlock()

	if ack != nil {
		ack <- err
	}
}

func (p *RemotePlatform) closeActiveLocked() {
	stream := p.active
	p.active = nil
	if stream != nil {
		stream.markClosed()
	}
}

type remoteStream struct {
	deviceID    string
	decoder     VideoDecoder
	captureRate time.Duration
	log         *slog.Logger
	onClose     func()

	ready     chan struct{}
	readyOnce sync.Once
	closeOnce sync.Once

	mu            sync.Mutex
	sampleBuilder *samplebuilder.SampleBuilder
	mimeType      string
	lastCapture   time.Time
	frame         *Frame
	closed        bool
}

func newRemoteStream(deviceID string, decoder VideoDecoder, captureRate time.Duration, log *slog.Logger) *remoteStream {
	return &remoteStream{
		deviceID:    deviceID,
		decoder:     decoder,
		captureRate: captureRate,
		log:         log.With("device_id", deviceID),
		ready:       make(chan struct{}),
	}
}

func (s *remoteStream) DeviceID() string { return s.deviceID }

func (s *remoteStream) Ready() <-chan struct{} { return s.ready }

func (s *remoteStream) LatestFrame() *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

func (s *remoteStream) Dimensions() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return 0, 0
	}
	return s.frame.Width, s.frame.Height
}

func (s *remoteStream) Close() error {
	s.markClosed()
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}

func (s *remoteStream) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *remoteStream) handleRTP(payload []byte, mimeType string) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return
	}

	if s.sampleBuilder == nil || s.mimeType != mimeType {
		s.mimeType = mimeType
		s.sampleBuilder = newSampleBuilder(mimeType)
		if s.sampleBuilder == nil {
			s.log.Warn("unsupported video codec", "mime_type", mimeType)
			s.mu.Unlock()
			return
		}
	}

	s.sampleBuilder.Push(&rtp.Packet{Payload: payload})

	var pending [][]byte
	for {
		sample := s.sampleBuilder.Pop()
		if sample == nil {
			break
		}
		now := time.Now()
		if now.Sub(s.lastCapture) < s.captureRate {
			continue
		}
		s.lastCapture = now
		pending = append(pending, sample.Data)
	}
	mime := s.mimeType
	s.mu.Unlock()

	for _, data := range pending {
		go s.processSample(data, mime, time.Now())
	}
}

func newSampleBuilder(mimeType string) *samplebuilder.SampleBuilder {
	switch mimeType {
	case "video/VP8":
		return samplebuilder.New(64, &codecs.VP8Packet{}, 90000)
	case "video/VP9":
		return samplebuilder.New(64, &codecs.VP9Packet{}, 90000)
	case "video/H264":
		return samplebuilder.New(64, &codecs.H264Packet{}, 90000)
	default:
		return nil
	}
}

func (s *remoteStream) processSample(data []byte, mimeType string, ts time.Time) {
	img, err := s.decoder.Decode(data, mimeType)
	if err != nil {
		s.log.Debug("frame decode failed", "error", err)
		return
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		s.log.Debug("jpeg encode failed", "error", err)
		return
	}

	frame := &Frame{
		Data:      buf.Bytes(),
		Timestamp: ts,
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.frame = frame
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) })
}
