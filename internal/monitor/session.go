package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/eleven-am/proctor-backend/internal/camera"
	"github.com/eleven-am/proctor-backend/internal/detection"
	"github.com/pion/webrtc/v4"
)

var errNoDataChannel = errors.New("data channel not open")

// Session is one monitored student: the WebRTC peer, the camera session
// driving it and the sampler feeding frames to the detector.
type Session struct {
	ID          string
	StudentID   string
	StudentName string
	ExamID      string

	peer      *Peer
	platform  *camera.RemotePlatform
	cameraMgr *camera.Manager
	sampler   *detection.Sampler
	log       *slog.Logger

	mu        sync.RWMutex
	dc        *webrtc.DataChannel
	connected bool

	monitorOnce sync.Once
	closeOnce   sync.Once
	done        chan struct{}

	onClosed func(reason string)
}

// SendControl implements camera.ControlSender over the data channel.
func (s *Session) SendControl(msg any) error {
	s.mu.RLock()
	dc := s.dc
	connected := s.connected
	s.mu.RUnlock()

	if dc == nil || !connected {
		return errNoDataChannel
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return dc.SendText(string(data))
}

func (s *Session) setupDataChannel(ctx context.Context, dc *webrtc.DataChannel) {
	s.mu.Lock()
	s.dc = dc
	s.mu.Unlock()

	dc.OnOpen(func() {
		s.mu.Lock()
		s.connected = true
		s.mu.Unlock()
		s.log.Info("data channel open")
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if msg.IsString {
			s.handleMessage(ctx, msg.Data)
		}
	})

	dc.OnClose(func() {
		s.Close("data_channel_closed")
	})
}

func (s *Session) handleMessage(ctx context.Context, data []byte) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return
	}

	switch {
	case base.Type == "ice.candidate":
		s.handleICECandidate(data)
	case strings.HasPrefix(base.Type, "camera."):
		s.platform.HandleControl(data)
		if base.Type == "camera.devices" {
			// First device announcement kicks off the capture session.
			s.monitorOnce.Do(func() { go s.beginMonitoring(ctx) })
		}
	}
}

func (s *Session) handleICECandidate(data []byte) {
	var msg struct {
		Candidate webrtc.ICECandidateInit `json:"candidate"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if err := s.peer.AddICECandidate(msg.Candidate); err != nil {
		s.log.Debug("failed to add ICE candidate", "error", err)
	}
}

func (s *Session) sendICECandidate(candidate webrtc.ICECandidateInit) {
	msg := map[string]any{
		"type":      "ice.candidate",
		"candidate": candidate,
	}
	if err := s.SendControl(msg); err != nil && err != errNoDataChannel {
		s.log.Debug("failed to send ICE candidate", "error", err)
	}
}

func (s *Session) beginMonitoring(ctx context.Context) {
	if err := s.cameraMgr.Start(ctx, camera.DefaultConstraints()); err != nil {
		s.log.Error("camera start failed", "error", err, "message", camera.UserMessage(err))
		return
	}

	s.sampler.Start(ctx)
	s.log.Info("monitoring started")
}

func (s *Session) SwitchCamera(ctx context.Context) error {
	return s.cameraMgr.SwitchDevice(ctx)
}

func (s *Session) CameraState() camera.ConnectionState {
	return s.cameraMgr.State()
}

func (s *Session) CaptureFrame() *camera.Frame {
	return s.cameraMgr.CaptureFrame()
}

func (s *Session) Close(reason string) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()

		close(s.done)
		s.sampler.Stop()
		s.cameraMgr.Stop()
		_ = s.peer.Close()

		s.log.Info("session closed", "reason", reason)
		if s.onClosed != nil {
			s.onClosed(reason)
		}
	})
}
