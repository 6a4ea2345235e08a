// Peercam — CLI entry point.
//
// This tool streams a local camera feed (RTP pushed by an external encoder)
// to a remote peer over a WebRTC media session. All signaling payloads are
// encrypted with a shared passphrase before leaving the process, so the
// signaling channel (direct WebSocket relay or an MQTT broker) never sees
// SDP or ICE data in the clear.
//
// It can be launched interactively (no flags) or non-interactively via CLI
// flags (-role, -key, -listen, -url, -broker, -room, …).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"

	"github.com/peercam/peercam/internal/app"
	"github.com/peercam/peercam/internal/config"
	"github.com/peercam/peercam/internal/util"
)

var version = "dev"

func main() {
	// Root context — cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// CLI flags.
	role := flag.String("role", "", "Role: host or join")
	key := flag.String("key", "", "Shared passphrase (or env "+config.EnvKey+")")
	listen := flag.String("listen", ":0", "Relay listen address (host only)")
	rawURL := flag.String("url", "", "Relay URL to connect to (join only)")
	broker := flag.String("broker", "", "MQTT broker URL (or env "+config.EnvBroker+")")
	room := flag.String("room", "", "MQTT room ID")
	pin := flag.String("pin", "", "Host PIN (join with -discover)")
	discover := flag.Bool("discover", false, "Locate the host via mDNS (join only)")
	cameraPort := flag.Int("camera", config.DefaultCameraPort, "UDP port the encoder pushes RTP to")
	playerAddr := flag.String("player", config.DefaultPlayerAddr, "UDP address the remote stream is forwarded to")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("Peercam — v%s", version))
	pterm.Println()

	cfg := &config.Config{
		Role:       config.Role(*role),
		Passphrase: *key,
		RelayAddr:  *listen,
		Broker:     *broker,
		Room:       *room,
		PIN:        *pin,
		Discover:   *discover,
		CameraPort: *cameraPort,
		PlayerAddr: *playerAddr,
		MimeType:   config.DefaultMimeType,
		Debug:      *debugMode,
	}
	cfg.FillFromEnv()

	if *rawURL != "" {
		normalized, err := normalizeRelayURL(*rawURL)
		if err != nil {
			util.LogError("%v", err)
			os.Exit(1)
		}
		cfg.RelayURL = normalized
	}

	if *role == "" {
		// No -role flag → interactive mode.
		runInteractive(ctx, cfg)
		return
	}

	if err := cfg.Validate(); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	runRole(ctx, cfg)
}

// ---------------------------------------------------------------------------
// Run modes
// ---------------------------------------------------------------------------

// runInteractive falls back to interactive prompts when no -role flag is
// provided.
func runInteractive(ctx context.Context, cfg *config.Config) {
	choice, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{"Host — Share my camera and wait for a peer", "Join — Connect to a host"}).
		WithDefaultText("Select your role").
		Show()

	pterm.Println()

	if cfg.Passphrase == "" {
		cfg.Passphrase = askSecret("Shared passphrase (both sides must match)")
	}

	if strings.HasPrefix(choice, "Host") {
		cfg.Role = config.RoleHost
	} else {
		cfg.Role = config.RoleJoin
		if cfg.RelayURL == "" && cfg.Broker == "" {
			cfg.RelayURL = askURL()
		}
	}

	if err := cfg.Validate(); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	runRole(ctx, cfg)
}

func runRole(ctx context.Context, cfg *config.Config) {
	var err error
	switch cfg.Role {
	case config.RoleHost:
		err = app.RunHost(ctx, cfg)
	case config.RoleJoin:
		err = app.RunJoin(ctx, cfg)
	}
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	util.LogInfo("session closed")
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

// normalizeRelayURL validates and normalizes a raw relay URL string, keeping
// any pin query parameter intact.
func normalizeRelayURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid relay URL: %s", raw)
	}
	scheme := "wss"
	if u.Scheme == "ws" || u.Scheme == "wss" {
		scheme = u.Scheme
	}
	normalized := fmt.Sprintf("%s://%s/ws", scheme, u.Host)
	if q := u.RawQuery; q != "" {
		normalized += "?" + q
	}
	return normalized, nil
}

// askSecret prompts the user for a non-empty passphrase.
func askSecret(prompt string) string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithMask("*").
			WithDefaultText(prompt).
			Show()

		if s := strings.TrimSpace(raw); s != "" {
			pterm.Println()
			return s
		}

		util.LogWarning("passphrase must not be empty")
		pterm.Println()
	}
}

// askURL prompts the user for a valid relay URL until one is entered.
func askURL() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Relay URL (e.g. ws://192.168.1.10:52000/ws?pin=1234)").
			Show()

		u, err := normalizeRelayURL(raw)
		if err == nil {
			pterm.Println()
			return u
		}

		pterm.Println()
		util.LogWarning("invalid input: please enter a valid host or URL")
	}
}
