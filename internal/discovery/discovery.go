// Package discovery advertises and locates peercam hosts on the local network
// via mDNS, so a joining peer on the same LAN does not need the relay URL
// typed in by hand. The PIN is never advertised.
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	service = "_peercam._tcp"
	domain  = "local."

	lookupTimeout = 3 * time.Second
)

// Host is a discovered peercam host.
type Host struct {
	Addr net.IP
	Port int
	Room string
}

// URL returns the ws:// relay URL for the host (PIN still required).
func (h Host) URL() string {
	return fmt.Sprintf("ws://%s/ws", net.JoinHostPort(h.Addr.String(), fmt.Sprint(h.Port)))
}

// Advertiser announces a running relay server until Shutdown.
type Advertiser struct {
	server *mdns.Server
}

// Advertise publishes this host's relay port and room ID on the LAN.
func Advertise(room string, port int) (*Advertiser, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "peercam"
	}

	zone, err := mdns.NewMDNSService(
		hostname,
		service,
		domain,
		"",
		port,
		nil, // let mdns pick the host IPs
		[]string{room},
	)
	if err != nil {
		return nil, fmt.Errorf("discovery: create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: zone})
	if err != nil {
		return nil, fmt.Errorf("discovery: start responder: %w", err)
	}

	return &Advertiser{server: server}, nil
}

// Shutdown stops the mDNS responder.
func (a *Advertiser) Shutdown() error {
	return a.server.Shutdown()
}

// Lookup browses the LAN and returns the first peercam host found, or an
// error when none answers within the timeout.
func Lookup(ctx context.Context) (*Host, error) {
	entriesCh := make(chan *mdns.ServiceEntry, 4)
	found := make(chan *Host, 1)

	go func() {
		for entry := range entriesCh {
			addr := entry.AddrV4
			if addr == nil {
				addr = entry.AddrV6
			}
			if addr == nil {
				continue
			}
			h := &Host{Addr: addr, Port: entry.Port}
			if len(entry.InfoFields) > 0 {
				h.Room = entry.InfoFields[0]
			}
			select {
			case found <- h:
			default:
			}
		}
	}()

	err := mdns.Query(&mdns.QueryParam{
		Service:     service,
		Domain:      domain,
		Timeout:     lookupTimeout,
		Entries:     entriesCh,
		DisableIPv6: true,
	})
	close(entriesCh)
	if err != nil {
		return nil, fmt.Errorf("discovery: query: %w", err)
	}

	select {
	case h := <-found:
		return h, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		return nil, fmt.Errorf("discovery: no host found")
	}
}
