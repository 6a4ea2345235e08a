// Package util provides shared logging and statistics helpers.
package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide signaling/media counter.
var Stats = &stats{}

type stats struct {
	SignalsSent   atomic.Int64 // encrypted signals handed to the transport
	SignalsRecv   atomic.Int64 // encrypted signals applied to the session
	MediaBytesIn  atomic.Int64 // RTP bytes read from the local camera feed
	MediaBytesOut atomic.Int64 // RTP bytes forwarded from the remote stream
}

func (s *stats) AddSignalSent()    { s.SignalsSent.Add(1) }
func (s *stats) AddSignalRecv()    { s.SignalsRecv.Add(1) }
func (s *stats) AddMediaIn(n int)  { s.MediaBytesIn.Add(int64(n)) }
func (s *stats) AddMediaOut(n int) { s.MediaBytesOut.Add(int64(n)) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs session statistics
// every 10 seconds. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevIn, prevOut int64
		for {
			select {
			case <-ticker.C:
				in := Stats.MediaBytesIn.Load()
				out := Stats.MediaBytesOut.Load()

				inS := float64(in-prevIn) / 10.0
				outS := float64(out-prevOut) / 10.0

				if inS > 10 || outS > 10 {
					pterm.DefaultLogger.Info(formatStats(inS, outS))
				}

				prevIn = in
				prevOut = out

			case <-ctx.Done():
				return
			}
		}
	}()
}

// formatStats renders per-interval throughput in human-readable units.
func formatStats(inPerSec, outPerSec float64) string {
	return fmt.Sprintf("camera %s | remote %s", formatRate(inPerSec), formatRate(outPerSec))
}

// formatRate converts a bytes-per-second value to a compact display string.
func formatRate(bps float64) string {
	switch {
	case bps >= 1<<20:
		return fmt.Sprintf("%.1f MB/s", bps/(1<<20))
	case bps >= 1<<10:
		return fmt.Sprintf("%.1f KB/s", bps/(1<<10))
	default:
		return fmt.Sprintf("%.0f B/s", bps)
	}
}
