// Package relay carries encrypted signal blobs between two peers over a
// WebSocket. The relay is deliberately blind: frames are opaque text produced
// by the signal codec, and the relay never sees a plaintext payload. The host
// runs a one-client server guarded by a PIN; the joining side dials it.
package relay

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the host-side WebSocket server used for the signaling exchange.
type Server struct {
	pin      string
	listener net.Listener
	connCh   chan *websocket.Conn
}

// NewServer creates a signaling server with the given PIN for authentication.
func NewServer(pin string) *Server {
	return &Server{
		pin:    pin,
		connCh: make(chan *websocket.Conn, 1),
	}
}

// Start begins listening on addr (":0" picks a random port). Returns the
// assigned port number.
func (s *Server) Start(addr string) (int, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("relay: start server: %w", err)
	}
	s.listener = listener
	port := listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)

	go func() {
		_ = http.Serve(listener, mux)
	}()

	return port, nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	pin := r.URL.Query().Get("pin")
	if subtle.ConstantTimeCompare([]byte(pin), []byte(s.pin)) != 1 {
		http.Error(w, "invalid pin", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	// Only accept the first client.
	select {
	case s.connCh <- conn:
	default:
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "already connected"))
		conn.Close()
	}
}

// WaitForPeer blocks until a client connects or ctx is cancelled.
func (s *Server) WaitForPeer(ctx context.Context) (*Conn, error) {
	select {
	case ws := <-s.connCh:
		return newConn(ws), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts down the listener, preventing new connections.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
}

// GeneratePIN returns a uniformly random numeric PIN of the given length,
// zero-padded so short values keep their leading digits.
func GeneratePIN(length int) string {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		// crypto/rand failing means the platform RNG is broken; there is
		// no sensible PIN to hand out in that state.
		panic(fmt.Sprintf("relay: generate pin: %v", err))
	}
	return fmt.Sprintf("%0*d", length, n)
}
