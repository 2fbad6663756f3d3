// Package rtc turns collected ICE servers into a pion configuration.
package rtc

import (
	"github.com/pion/webrtc/v4"
)

// DefaultICEServers is used when signalling supplied none.
func DefaultICEServers() []webrtc.ICEServer {
	return []webrtc.ICEServer{
		{
			URLs: []string{"stun:stun.l.google.com:19302"},
		},
	}
}

// Configuration builds a peer connection configuration from servers,
// falling back to DefaultICEServers. Servers without URLs are dropped.
func Configuration(servers []webrtc.ICEServer) webrtc.Configuration {
	usable := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		if len(s.URLs) == 0 {
			continue
		}
		usable = append(usable, s)
	}
	if len(usable) == 0 {
		usable = DefaultICEServers()
	}
	return webrtc.Configuration{
		ICEServers:   usable,
		SDPSemantics: webrtc.SDPSemanticsUnifiedPlan,
	}
}

// Validate creates and closes a throwaway peer connection, which makes
// pion parse every ICE url and credential.
func Validate(cfg webrtc.Configuration) error {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return err
	}
	return pc.Close()
}
