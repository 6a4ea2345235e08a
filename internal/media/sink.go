package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/pion/webrtc/v4"

	"github.com/peercam/peercam/internal/util"
)

// UDPSink forwards RTP from a remote track to a local UDP address, where an
// external player (ffplay, GStreamer) renders it.
type UDPSink struct {
	conn net.Conn
}

// NewUDPSink dials the given UDP address, e.g. "127.0.0.1:5004".
func NewUDPSink(addr string) (*UDPSink, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("media: dial player address: %w", err)
	}
	return &UDPSink{conn: conn}, nil
}

// Run copies RTP packets from the remote track to the UDP socket until the
// track ends or ctx is cancelled.
func (k *UDPSink) Run(ctx context.Context, track *webrtc.TrackRemote) error {
	go func() {
		<-ctx.Done()
		k.conn.Close()
	}()

	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("media: read remote track: %w", err)
		}

		data, err := pkt.Marshal()
		if err != nil {
			util.LogDebug("marshal remote RTP packet: %v", err)
			continue
		}

		if _, err := k.conn.Write(data); err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("media: forward remote RTP: %w", err)
		}

		util.Stats.AddMediaOut(len(data))
	}
}

// Close releases the UDP socket.
func (k *UDPSink) Close() error {
	return k.conn.Close()
}
