// Package rtc implements the underlying peer connection on top of pion,
// exposing it through the small surface the session wrapper needs: local
// negotiation payloads out, remote negotiation payloads in, a remote stream
// callback, and fatal-error delivery.
package rtc

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/peercam/peercam/internal/signal"
	"github.com/peercam/peercam/internal/util"
)

// ErrConnectionFailed reports that ICE gave up on the connection. There is no
// restart handling — the caller discards the peer and builds a new one.
var ErrConnectionFailed = errors.New("rtc: peer connection failed")

// RemoteStream is the remote party's media stream as delivered by pion.
type RemoteStream struct {
	Track    *webrtc.TrackRemote
	Receiver *webrtc.RTPReceiver
}

// Config holds peer construction parameters.
type Config struct {
	// Tracks are the outbound local media tracks. When empty, a recvonly
	// video transceiver is added so the offer still negotiates media.
	Tracks []webrtc.TrackLocal

	// ICEServers overrides the default STUN set when non-empty.
	ICEServers []webrtc.ICEServer
}

// Peer wraps a pion PeerConnection behind the session.Peer surface.
type Peer struct {
	pc *webrtc.PeerConnection

	mu       sync.RWMutex
	onSignal func(signal.Payload)
	onStream func(*RemoteStream)
	onError  func(error)

	// Candidates that arrived before the remote description. With trickle
	// ICE the other side's candidates can overtake its offer or answer on
	// the wire; they are held here and applied once the description lands.
	pendingMu sync.Mutex
	pending   []webrtc.ICECandidateInit
}

// New creates a Peer with the given local tracks attached. Callbacks must be
// registered before Offer or Apply is called; negotiation payloads are only
// produced once one of those runs.
func New(cfg Config) (*Peer, error) {
	pc, err := newPeerConnection(cfg.ICEServers)
	if err != nil {
		return nil, err
	}

	p := &Peer{pc: pc}

	for _, t := range cfg.Tracks {
		if _, err := pc.AddTrack(t); err != nil {
			pc.Close()
			return nil, fmt.Errorf("rtc: add track: %w", err)
		}
	}
	if len(cfg.Tracks) == 0 {
		if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			pc.Close()
			return nil, fmt.Errorf("rtc: add recvonly transceiver: %w", err)
		}
	}

	// Trickle ICE: every gathered candidate becomes a negotiation payload.
	// A nil candidate marks end of gathering and is not forwarded.
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			p.emitError(fmt.Errorf("rtc: marshal candidate: %w", err))
			return
		}
		p.emitSignal(signal.Payload{Type: signal.TypeCandidate, Candidate: string(data)})
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		util.LogDebug("remote track: %s (%s)", track.ID(), track.Codec().MimeType)
		p.mu.RLock()
		fn := p.onStream
		p.mu.RUnlock()
		if fn != nil {
			fn(&RemoteStream{Track: track, Receiver: receiver})
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.LogDebug("PeerConnection state: %s", state.String())
		if state == webrtc.PeerConnectionStateFailed {
			p.emitError(ErrConnectionFailed)
		}
	})

	return p, nil
}

// OnSignal registers the local negotiation payload callback.
func (p *Peer) OnSignal(fn func(signal.Payload)) {
	p.mu.Lock()
	p.onSignal = fn
	p.mu.Unlock()
}

// OnStream registers the remote stream callback.
func (p *Peer) OnStream(fn func(*RemoteStream)) {
	p.mu.Lock()
	p.onStream = fn
	p.mu.Unlock()
}

// OnError registers the fatal error callback.
func (p *Peer) OnError(fn func(error)) {
	p.mu.Lock()
	p.onError = fn
	p.mu.Unlock()
}

// Offer creates an SDP offer, applies it locally, and emits it as a
// negotiation payload. Candidate payloads follow as gathering proceeds.
func (p *Peer) Offer() error {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("rtc: create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("rtc: set local description: %w", err)
	}
	p.emitSignal(signal.Payload{Type: signal.TypeOffer, SDP: offer.SDP})
	return nil
}

// Apply feeds a remote negotiation payload into the connection. An inbound
// offer produces an answer payload on the signal callback.
func (p *Peer) Apply(msg signal.Payload) error {
	switch msg.Type {
	case signal.TypeOffer:
		if err := p.pc.SetRemoteDescription(webrtc.SessionDescription{
			Type: webrtc.SDPTypeOffer, SDP: msg.SDP,
		}); err != nil {
			return fmt.Errorf("rtc: set remote offer: %w", err)
		}
		p.flushCandidates()
		answer, err := p.pc.CreateAnswer(nil)
		if err != nil {
			return fmt.Errorf("rtc: create answer: %w", err)
		}
		if err := p.pc.SetLocalDescription(answer); err != nil {
			return fmt.Errorf("rtc: set local description: %w", err)
		}
		p.emitSignal(signal.Payload{Type: signal.TypeAnswer, SDP: answer.SDP})
		return nil

	case signal.TypeAnswer:
		if err := p.pc.SetRemoteDescription(webrtc.SessionDescription{
			Type: webrtc.SDPTypeAnswer, SDP: msg.SDP,
		}); err != nil {
			return fmt.Errorf("rtc: set remote answer: %w", err)
		}
		p.flushCandidates()
		return nil

	case signal.TypeCandidate:
		var init webrtc.ICECandidateInit
		if err := json.Unmarshal([]byte(msg.Candidate), &init); err != nil {
			return fmt.Errorf("rtc: parse candidate: %w", err)
		}
		if p.pc.RemoteDescription() == nil {
			p.pendingMu.Lock()
			p.pending = append(p.pending, init)
			p.pendingMu.Unlock()
			util.LogDebug("holding candidate until remote description arrives")
			return nil
		}
		if err := p.pc.AddICECandidate(init); err != nil {
			return fmt.Errorf("rtc: add candidate: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("rtc: unknown payload type %q", msg.Type)
	}
}

// flushCandidates applies the candidates held back before the remote
// description was set. A candidate pion rejects at this point is logged and
// skipped; the connection can usually complete on the remaining pairs.
func (p *Peer) flushCandidates() {
	p.pendingMu.Lock()
	pending := p.pending
	p.pending = nil
	p.pendingMu.Unlock()

	for _, init := range pending {
		if err := p.pc.AddICECandidate(init); err != nil {
			util.LogWarning("dropping held candidate: %v", err)
		}
	}
}

// Close shuts down the PeerConnection.
func (p *Peer) Close() error {
	return p.pc.Close()
}

func (p *Peer) emitSignal(msg signal.Payload) {
	p.mu.RLock()
	fn := p.onSignal
	p.mu.RUnlock()
	if fn != nil {
		fn(msg)
	}
}

func (p *Peer) emitError(err error) {
	p.mu.RLock()
	fn := p.onError
	p.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}
