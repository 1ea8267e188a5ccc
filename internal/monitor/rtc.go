package monitor

import "github.com/pion/webrtc/v4"

type ICEServerConfig struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

type RTCConfig struct {
	ICEServers []ICEServerConfig
	PortRange  struct {
		Min int
		Max int
	}
}

// RTC owns the shared webrtc.API so every peer uses the same media engine
// and port range.
type RTC struct {
	cfg RTCConfig
	api *webrtc.API
}

func NewRTC(cfg RTCConfig) (*RTC, error) {
	me := &webrtc.MediaEngine{}
	if err := me.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	se := &webrtc.SettingEngine{}
	if cfg.PortRange.Min > 0 && cfg.PortRange.Max > cfg.PortRange.Min {
		if err := se.SetEphemeralUDPPortRange(uint16(cfg.PortRange.Min), uint16(cfg.PortRange.Max)); err != nil {
			return nil, err
		}
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(me),
		webrtc.WithSettingEngine(*se),
	)

	return &RTC{cfg: cfg, api: api}, nil
}

func (r *RTC) NewPeer() (*Peer, error) {
	pc, err := r.api.NewPeerConnection(webrtc.Configuration{
		ICEServers: r.iceServers(),
	})
	if err != nil {
		return nil, err
	}
	return NewPeer(pc), nil
}

func (r *RTC) iceServers() []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, len(r.cfg.ICEServers))
	for _, s := range r.cfg.ICEServers {
		server := webrtc.ICEServer{
			URLs: s.URLs,
		}
		if s.Username != "" {
			server.Username = s.Username
			server.Credential = s.Credential
			server.CredentialType = webrtc.ICECredentialTypePassword
		}
		servers = append(servers, server)
	}

	if len(servers) == 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs: []string{"stun:stun.l.google.com:19302"},
		})
	}

	return servers
}

func (r *RTC) ICEServers() []ICEServerConfig {
	return r.cfg.ICEServers
}
