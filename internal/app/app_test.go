package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/peercam/peercam/internal/config"
)

// idleTransport accepts outbound blobs and blocks on Receive until closed.
type idleTransport struct {
	closed chan struct{}
}

func newIdleTransport() *idleTransport {
	return &idleTransport{closed: make(chan struct{})}
}

func (t *idleTransport) Send(string) error { return nil }

func (t *idleTransport) Receive() (string, error) {
	<-t.closed
	return "", errors.New("transport closed")
}

func (t *idleTransport) Close() error {
	close(t.closed)
	return nil
}

// The camera goroutine and the signal pumps all hang off the context run
// derives up front; a cancel from the caller must unwind every one of them.
func TestRunStopsOnCancel(t *testing.T) {
	cfg := &config.Config{
		Passphrase: "test-passphrase",
		CameraPort: 0, // any free port
		PlayerAddr: "127.0.0.1:0",
		MimeType:   webrtc.MimeTypeH264,
	}

	tr := newIdleTransport()
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, true, tr) }()

	// Let the offer round start before pulling the plug.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() = %v, want nil on cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
