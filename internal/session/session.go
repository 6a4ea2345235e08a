// Package session binds an underlying peer connection to an encrypted
// signaling channel. Every locally generated negotiation payload is encrypted
// before it reaches the caller, and every inbound blob is decrypted before it
// reaches the connection. The session adds no state of its own — lifecycle is
// inherited from the underlying connection, and a failed session is discarded
// and recreated by the caller.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/peercam/peercam/internal/signal"
)

// Peer is the underlying connection abstraction. S is the remote stream type
// the connection delivers once media starts flowing.
//
// Implementations must invoke the registered callbacks from at most one
// goroutine at a time; the session performs no locking around them.
type Peer[S any] interface {
	// OnSignal registers the callback invoked for every locally generated
	// negotiation payload (offer, answer, or ICE candidate).
	OnSignal(fn func(signal.Payload))

	// OnStream registers the callback invoked when the remote media stream
	// arrives.
	OnStream(fn func(S))

	// OnError registers the callback invoked on any fatal connection error.
	OnError(fn func(error))

	// Offer generates the initial offer. Only the initiator calls this.
	Offer() error

	// Apply feeds a remote negotiation payload into the connection.
	Apply(signal.Payload) error

	// Close tears down the connection.
	Close() error
}

// Config holds the session construction parameters.
type Config[S any] struct {
	// Initiator decides whether this session proactively generates the first
	// offer or waits for one from the remote side.
	Initiator bool

	// Codec encrypts outbound and decrypts inbound payloads. Required.
	Codec *signal.Codec[signal.Payload]

	// OnSignal receives each encrypted blob that must be carried to the
	// remote party. It never sees plaintext payloads. Required.
	OnSignal func(blob string)

	// OnRemoteStream receives the remote media stream. Invoked at most once
	// per session. Required.
	OnRemoteStream func(S)

	// OnError receives fatal connection errors and outbound encode failures,
	// passed through unchanged. Optional.
	OnError func(error)
}

var (
	// ErrNilCodec is returned by New when no codec is configured.
	ErrNilCodec = errors.New("session: nil codec")

	// ErrNilCallback is returned by New when a required callback is missing.
	ErrNilCallback = errors.New("session: missing required callback")
)

// Session is a single logical connection attempt. It owns the underlying
// connection for its lifetime and has no retry or reconnect logic.
type Session[S any] struct {
	peer  Peer[S]
	codec *signal.Codec[signal.Payload]

	streamOnce sync.Once
	onError    func(error)
}

// New wires cfg's callbacks onto peer with encryption interposed on both the
// egress and ingress signal paths, then — for the initiator role — kicks off
// negotiation by generating the first offer.
func New[S any](peer Peer[S], cfg Config[S]) (*Session[S], error) {
	if cfg.Codec == nil {
		return nil, ErrNilCodec
	}
	if cfg.OnSignal == nil || cfg.OnRemoteStream == nil {
		return nil, ErrNilCallback
	}

	onError := cfg.OnError
	if onError == nil {
		onError = func(error) {}
	}

	s := &Session[S]{
		peer:    peer,
		codec:   cfg.Codec,
		onError: onError,
	}

	peer.OnError(onError)

	peer.OnSignal(func(p signal.Payload) {
		blob, err := s.codec.Encode(p)
		if err != nil {
			onError(err)
			return
		}
		cfg.OnSignal(blob)
	})

	peer.OnStream(func(stream S) {
		s.streamOnce.Do(func() { cfg.OnRemoteStream(stream) })
	})

	if cfg.Initiator {
		if err := peer.Offer(); err != nil {
			return nil, fmt.Errorf("session: create offer: %w", err)
		}
	}

	return s, nil
}

// ApplyRemoteSignal decrypts an encrypted blob received out-of-band and feeds
// the payload into the underlying connection. Decode errors and connection
// errors propagate to the caller unchanged; neither is retried.
func (s *Session[S]) ApplyRemoteSignal(blob string) error {
	p, err := s.codec.Decode(blob)
	if err != nil {
		return err
	}
	return s.peer.Apply(p)
}

// Close tears down the underlying connection.
func (s *Session[S]) Close() error {
	return s.peer.Close()
}
