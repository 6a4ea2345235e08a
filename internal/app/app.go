// Package app contains the top-level orchestration for the host and join
// roles: build the codec, bind the camera feed, create the session, and
// bridge it to the chosen signaling transport until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/peercam/peercam/internal/config"
	"github.com/peercam/peercam/internal/media"
	"github.com/peercam/peercam/internal/rtc"
	"github.com/peercam/peercam/internal/session"
	"github.com/peercam/peercam/internal/signal"
	"github.com/peercam/peercam/internal/util"
)

// Transport carries encrypted signal blobs between the two peers. The relay
// and MQTT packages both satisfy it.
type Transport interface {
	Send(blob string) error
	Receive() (string, error)
	Close() error
}

// run bridges a session to a ready transport and blocks until the context is
// cancelled or the session fails:
//  1. Build the codec from the shared passphrase
//  2. Bind the camera RTP port and attach its track to a new peer
//  3. Create the session (the initiator emits the offer immediately)
//  4. Pump: session signals → transport, transport blobs → session
//  5. On remote stream, start forwarding to the player address
func run(ctx context.Context, cfg *config.Config, initiator bool, tr Transport) error {
	// All goroutines below hang off this one context; derive it before any
	// of them start so they all see the same value.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	codec, err := signal.NewCodec[signal.Payload](signal.Config{Passphrase: cfg.Passphrase})
	if err != nil {
		return err
	}

	// ── Camera feed ────────────────────────────────────────────────────
	src, err := media.NewUDPSource(cfg.CameraPort, cfg.MimeType)
	if err != nil {
		return err
	}
	defer src.Close()
	go func() {
		if err := src.Run(ctx); err != nil {
			util.LogWarning("camera feed stopped: %v", err)
		}
	}()
	util.LogInfo("camera feed: push RTP to udp://127.0.0.1:%d", cfg.CameraPort)

	peer, err := rtc.New(rtc.Config{
		Tracks: []webrtc.TrackLocal{src.Track()},
	})
	if err != nil {
		return err
	}

	// ── Session ────────────────────────────────────────────────────────
	fatalCh := make(chan error, 1)
	fatal := func(err error) {
		select {
		case fatalCh <- err:
		default:
		}
	}

	sess, err := session.New[*rtc.RemoteStream](peer, session.Config[*rtc.RemoteStream]{
		Initiator: initiator,
		Codec:     codec,
		OnSignal: func(blob string) {
			if err := tr.Send(blob); err != nil {
				fatal(fmt.Errorf("send signal: %w", err))
				return
			}
			util.Stats.AddSignalSent()
		},
		OnRemoteStream: func(rs *rtc.RemoteStream) {
			util.LogSuccess("remote stream up — forwarding to udp://%s", cfg.PlayerAddr)
			go forwardRemote(ctx, cfg.PlayerAddr, rs, fatal)
		},
		OnError: fatal,
	})
	if err != nil {
		peer.Close()
		return err
	}
	defer sess.Close()

	// ── Inbound signal pump ────────────────────────────────────────────
	recvErrCh := make(chan error, 1)
	go func() {
		for {
			blob, err := tr.Receive()
			if err != nil {
				recvErrCh <- err
				return
			}
			util.Stats.AddSignalRecv()
			if err := sess.ApplyRemoteSignal(blob); err != nil {
				recvErrCh <- err
				return
			}
		}
	}()

	util.StartStatsReporter(ctx)

	select {
	case <-ctx.Done():
		return nil
	case err := <-fatalCh:
		return fmt.Errorf("session failed: %w", err)
	case err := <-recvErrCh:
		// The transport closing after the session is up is normal teardown
		// on the relay path; anything else is fatal.
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("signaling failed: %w", err)
	}
}

// forwardRemote drains the remote track into the player address.
func forwardRemote(ctx context.Context, addr string, rs *rtc.RemoteStream, fatal func(error)) {
	sink, err := media.NewUDPSink(addr)
	if err != nil {
		fatal(err)
		return
	}
	defer sink.Close()

	if err := sink.Run(ctx, rs.Track); err != nil {
		fatal(err)
	}
}
