package monitor

import (
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// Peer wraps the WebRTC connection to one student. Video arrives on a
// remote track; control traffic rides the data channel the client opens.
type Peer struct {
	pc *webrtc.PeerConnection

	mu          sync.RWMutex
	onVideo     func(payload []byte, mimeType string)
	onConnected func()
	onFailed    func()
}

func NewPeer(pc *webrtc.PeerConnection) *Peer {
	p := &Peer{pc: pc}

	pc.OnTrack(func(remoteTrack *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if remoteTrack.Kind() == webrtc.RTPCodecTypeVideo {
			go p.readIncomingVideo(remoteTrack)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.mu.RLock()
		onConnected := p.onConnected
		onFailed := p.onFailed
		p.mu.RUnlock()

		switch state {
		case webrtc.PeerConnectionStateConnected:
			if onConnected != nil {
				onConnected()
			}
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateDisconnected:
			if onFailed != nil {
				onFailed()
			}
		}
	})

	return p
}

func (p *Peer) readIncomingVideo(track *webrtc.TrackRemote) {
	mimeType := track.Codec().MimeType
	buf := make([]byte, 1500)
	for {
		n, _, err := track.Read(buf)
		if err != nil {
			return
		}

		p.mu.RLock()
		cb := p.onVideo
		p.mu.RUnlock()

		if cb != nil {
			pkt := &rtp.Packet{}
			if err := pkt.Unmarshal(buf[:n]); err == nil {
				cb(pkt.Payload, mimeType)
			}
		}
	}
}

func (p *Peer) SetOffer(sdp string) error {
	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  sdp,
	}
	return p.pc.SetRemoteDescription(offer)
}

func (p *Peer) CreateAnswer() (string, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return "", err
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return "", err
	}
	return answer.SDP, nil
}

func (p *Peer) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(candidate)
}

func (p *Peer) OnVideo(fn func(payload []byte, mimeType string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onVideo = fn
}

func (p *Peer) OnConnected(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onConnected = fn
}

func (p *Peer) OnFailed(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFailed = fn
}

func (p *Peer) OnICECandidate(fn func(*webrtc.ICECandidate)) {
	p.pc.OnICECandidate(fn)
}

func (p *Peer) OnDataChannel(fn func(*webrtc.DataChannel)) {
	p.pc.OnDataChannel(fn)
}

func (p *Peer) Close() error {
	return p.pc.Close()
}
