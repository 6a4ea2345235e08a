package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/peercam/peercam/internal/config"
	"github.com/peercam/peercam/internal/discovery"
	"github.com/peercam/peercam/internal/mqttsig"
	"github.com/peercam/peercam/internal/relay"
	"github.com/peercam/peercam/internal/util"
)

// RunHost orchestrates the host side. The host is the initiator: once a peer
// shows up on the signaling transport, it sends the (encrypted) offer.
func RunHost(ctx context.Context, cfg *config.Config) error {
	if cfg.Broker != "" {
		return runHostMQTT(ctx, cfg)
	}
	return runHostRelay(ctx, cfg)
}

// runHostRelay starts the WS relay, advertises it on the LAN, waits for the
// joining peer, and hands off to the shared session bridge.
func runHostRelay(ctx context.Context, cfg *config.Config) error {
	pin := relay.GeneratePIN(4)
	server := relay.NewServer(pin)
	port, err := server.Start(cfg.RelayAddr)
	if err != nil {
		return err
	}
	defer server.Close()

	room := cfg.Room
	if room == "" {
		room = uuid.NewString()
	}
	if adv, err := discovery.Advertise(room, port); err != nil {
		util.LogWarning("LAN discovery unavailable: %v", err)
	} else {
		defer adv.Shutdown()
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════╗")
	fmt.Println("║            Peercam Signaling             ║")
	fmt.Println("╠══════════════════════════════════════════╣")
	fmt.Printf("║  Port : %-32d ║\n", port)
	fmt.Printf("║  PIN  : %-32s ║\n", pin)
	fmt.Println("╚══════════════════════════════════════════╝")
	fmt.Println()
	util.LogInfo("waiting for a peer to join…")

	conn, err := server.WaitForPeer(ctx)
	if err != nil {
		return fmt.Errorf("wait for peer: %w", err)
	}
	defer conn.Close()
	util.LogInfo("peer connected")

	return run(ctx, cfg, true, conn)
}

// runHostMQTT joins the broker under a fresh (or configured) room ID, waits
// for the joining side to announce itself, then offers. Offering earlier
// would publish into a room nobody subscribes to yet and the blob would be
// dropped by the broker.
func runHostMQTT(ctx context.Context, cfg *config.Config) error {
	room := cfg.Room
	if room == "" {
		room = uuid.NewString()
	}

	client, err := mqttsig.Dial(cfg.Broker, room, "host", "join")
	if err != nil {
		return err
	}
	defer client.Close()

	util.LogInfo("room ID: %s (give this to the joining side)", room)
	util.LogInfo("waiting for a peer to join the room…")

	if err := client.AwaitPeer(ctx); err != nil {
		return fmt.Errorf("wait for peer: %w", err)
	}
	util.LogInfo("peer joined")

	return run(ctx, cfg, true, client)
}
