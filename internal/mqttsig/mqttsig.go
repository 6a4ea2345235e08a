// Package mqttsig carries encrypted signal blobs over an MQTT broker, as an
// alternative to the direct WebSocket relay when neither peer can expose a
// port. Each side publishes to its own room topic and subscribes to the
// other role's. Like the relay, the broker only ever sees opaque blobs.
package mqttsig

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 10 * time.Second
	inboxSize      = 16
)

// ErrClosed is returned by Receive after Close.
var ErrClosed = errors.New("mqttsig: connection closed")

// Client is a signaling transport backed by an MQTT broker.
type Client struct {
	mq       mqtt.Client
	pubTopic string
	subTopic string

	// peerCh receives one token when the remote role announces itself on
	// its hello topic. The host must not start negotiating before this:
	// MQTT drops non-retained publishes with no subscriber, so an offer
	// sent before the joiner subscribes would vanish.
	peerCh chan struct{}

	mu     sync.Mutex
	inbox  chan string
	closed bool
}

// Dial connects to the broker and subscribes to the remote role's topic for
// the given room. role must differ between the two peers ("host"/"join").
func Dial(broker, room, role, remoteRole string) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(fmt.Sprintf("peercam-%s-%s", role, room))
	opts.SetConnectTimeout(connectTimeout)

	mq := mqtt.NewClient(opts)
	if token := mq.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqttsig: connect broker: %w", token.Error())
	}

	return newClient(mq, room, role, remoteRole)
}

// newClient wires the topic subscriptions on an already-connected client.
func newClient(mq mqtt.Client, room, role, remoteRole string) (*Client, error) {
	c := &Client{
		mq:       mq,
		pubTopic: topic(room, role),
		subTopic: topic(room, remoteRole),
		peerCh:   make(chan struct{}, 1),
		inbox:    make(chan string, inboxSize),
	}

	token := c.mq.Subscribe(c.subTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return
		}
		select {
		case c.inbox <- string(msg.Payload()):
		default:
			// A full inbox means the consumer stalled; drop rather than
			// block the paho router.
		}
	})
	if token.Wait() && token.Error() != nil {
		c.mq.Disconnect(0)
		return nil, fmt.Errorf("mqttsig: subscribe %s: %w", c.subTopic, token.Error())
	}

	hello := c.subTopic + "/hello"
	token = c.mq.Subscribe(hello, 1, func(_ mqtt.Client, _ mqtt.Message) {
		select {
		case c.peerCh <- struct{}{}:
		default:
		}
	})
	if token.Wait() && token.Error() != nil {
		c.mq.Disconnect(0)
		return nil, fmt.Errorf("mqttsig: subscribe %s: %w", hello, token.Error())
	}

	return c, nil
}

// Announce tells the remote role this side is subscribed and ready. The
// joiner calls it once after Dial so the host knows it may start the offer.
func (c *Client) Announce() error {
	token := c.mq.Publish(c.pubTopic+"/hello", 1, false, []byte("ready"))
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqttsig: announce: %w", token.Error())
	}
	return nil
}

// AwaitPeer blocks until the remote role announces itself or the context is
// cancelled.
func (c *Client) AwaitPeer(ctx context.Context) error {
	select {
	case <-c.peerCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send publishes one encrypted blob to this side's room topic.
func (c *Client) Send(blob string) error {
	token := c.mq.Publish(c.pubTopic, 1, false, []byte(blob))
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqttsig: publish: %w", token.Error())
	}
	return nil
}

// Receive blocks until the next encrypted blob arrives from the remote role.
func (c *Client) Receive() (string, error) {
	blob, ok := <-c.inbox
	if !ok {
		return "", ErrClosed
	}
	return blob, nil
}

// Close disconnects from the broker and unblocks any pending Receive.
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.inbox)
	}
	c.mu.Unlock()
	c.mq.Disconnect(250)
	return nil
}

func topic(room, role string) string {
	return fmt.Sprintf("peercam/%s/%s", room, role)
}
