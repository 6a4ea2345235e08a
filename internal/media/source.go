// Package media handles the local and remote edges of the media path. The
// camera is an external encoder (ffmpeg, libcamera-vid, GStreamer) pushing
// RTP to a local UDP port; the remote stream is forwarded back out as RTP
// for an external player. Nothing here decodes video.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/peercam/peercam/internal/util"
)

// maxRTPDatagram bounds a single RTP read. Standard MTU-sized packets fit
// comfortably; anything larger is a misconfigured encoder.
const maxRTPDatagram = 1500

// UDPSource reads RTP from a local UDP port and feeds it into a local track
// attachable to a peer connection. This is the "camera" side of the system.
type UDPSource struct {
	conn  *net.UDPConn
	track *webrtc.TrackLocalStaticRTP
}

// NewUDPSource binds the given UDP port and creates a local video track with
// the given MIME type (e.g. webrtc.MimeTypeH264).
func NewUDPSource(port int, mimeType string) (*UDPSource, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	if err != nil {
		return nil, fmt.Errorf("media: bind camera port: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: mimeType},
		"video", "peercam",
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("media: create local track: %w", err)
	}

	return &UDPSource{conn: conn, track: track}, nil
}

// Track returns the local track to attach to a peer connection.
func (s *UDPSource) Track() *webrtc.TrackLocalStaticRTP {
	return s.track
}

// Run copies RTP packets from the UDP socket into the track until ctx is
// cancelled or the socket is closed. Malformed datagrams are dropped.
func (s *UDPSource) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	buf := make([]byte, maxRTPDatagram)
	pkt := &rtp.Packet{}
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("media: read camera feed: %w", err)
		}

		if err := pkt.Unmarshal(buf[:n]); err != nil {
			util.LogDebug("dropping malformed RTP datagram (%d bytes): %v", n, err)
			continue
		}
		util.Stats.AddMediaIn(n)

		if err := s.track.WriteRTP(pkt); err != nil {
			// ErrClosedPipe means no peer is bound yet; keep draining the
			// camera so the encoder never blocks.
			if !errors.Is(err, io.ErrClosedPipe) {
				util.LogDebug("local track write: %v", err)
			}
			continue
		}
	}
}

// Addr reports the bound local address, useful when port 0 was requested.
func (s *UDPSource) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Close releases the UDP socket.
func (s *UDPSource) Close() error {
	return s.conn.Close()
}
