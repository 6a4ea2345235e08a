package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// Conn carries encrypted signal blobs as WebSocket text messages. Writes are
// serialized by a mutex; reads happen from one goroutine (gorilla's rule).
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Dial connects to a host's signaling server. The URL should include the PIN
// as a query parameter, e.g.:
//
//	wss://example.devtunnels.ms/ws?pin=1234
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("relay: connect: %w", err)
	}
	return newConn(ws), nil
}

// Send writes one encrypted blob to the peer.
func (c *Conn) Send(blob string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, []byte(blob))
}

// Receive blocks until the next encrypted blob arrives. It returns an error
// once the connection is closed.
func (c *Conn) Receive() (string, error) {
	for {
		typ, data, err := c.ws.ReadMessage()
		if err != nil {
			return "", fmt.Errorf("relay: read: %w", err)
		}
		if typ != websocket.TextMessage {
			continue
		}
		return string(data), nil
	}
}

// Close shuts down the WebSocket.
func (c *Conn) Close() error {
	return c.ws.Close()
}
