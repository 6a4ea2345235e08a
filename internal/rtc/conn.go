package rtc

import (
	"github.com/pion/webrtc/v4"
)

// STUN servers for ICE candidate gathering. No TURN — the tool is designed
// for direct P2P connectivity with zero infrastructure cost.
var stunServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// newPeerConnection creates a PeerConnection configured with the given ICE
// servers, falling back to Google STUN when none are supplied.
func newPeerConnection(servers []webrtc.ICEServer) (*webrtc.PeerConnection, error) {
	if len(servers) == 0 {
		servers = []webrtc.ICEServer{{URLs: stunServers}}
	}
	return webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
}
