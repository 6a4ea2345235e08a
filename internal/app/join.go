package app

import (
	"context"
	"fmt"

	"github.com/peercam/peercam/internal/config"
	"github.com/peercam/peercam/internal/discovery"
	"github.com/peercam/peercam/internal/mqttsig"
	"github.com/peercam/peercam/internal/relay"
	"github.com/peercam/peercam/internal/util"
)

// RunJoin orchestrates the joining side. It is the responder: it produces no
// signal until the host's offer arrives.
func RunJoin(ctx context.Context, cfg *config.Config) error {
	if cfg.Broker != "" {
		client, err := mqttsig.Dial(cfg.Broker, cfg.Room, "join", "host")
		if err != nil {
			return err
		}
		defer client.Close()
		// The host holds its offer until we announce; our subscriptions
		// are live at this point so nothing can race past us.
		if err := client.Announce(); err != nil {
			return err
		}
		return run(ctx, cfg, false, client)
	}

	url := cfg.RelayURL
	if url == "" && cfg.Discover {
		host, err := discovery.Lookup(ctx)
		if err != nil {
			return fmt.Errorf("discover host: %w", err)
		}
		util.LogInfo("found host %s (room %s)", host.Addr, host.Room)
		url = host.URL() + "?pin=" + cfg.PIN
	}

	conn, err := relay.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer conn.Close()
	util.LogInfo("connected to host")

	return run(ctx, cfg, false, conn)
}
