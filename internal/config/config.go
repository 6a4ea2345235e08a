// Package config holds the CLI configuration and its validation.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pion/webrtc/v4"
)

// Environment variables. Flags take precedence; the environment is the
// fallback so the passphrase can be kept out of shell history.
const (
	EnvKey    = "PEERCAM_KEY"
	EnvBroker = "PEERCAM_BROKER"
)

// ErrMissingKey means no passphrase was supplied by flag or environment.
// There is deliberately no built-in default key: startup fails instead.
var ErrMissingKey = errors.New("config: no passphrase set (use -key or " + EnvKey + ")")

// Role represents the user's chosen role.
type Role string

const (
	RoleHost Role = "host" // waits for a peer and sends the offer
	RoleJoin Role = "join" // dials the host and answers
)

// Config stores all parameters gathered from flags, prompts, and environment.
type Config struct {
	Role       Role
	Passphrase string // shared secret for the signal codec

	// Signaling transport: exactly one of the relay pair or Broker is used.
	RelayAddr string // host: listen address for the WS relay (":0" = random port)
	RelayURL  string // join: WS URL of the host's relay (PIN in the query string)
	PIN       string // join with -discover: the host's displayed PIN
	Broker    string // both: MQTT broker URL; selects the MQTT transport
	Room      string // MQTT room ID; generated on the host when empty

	// Media edges.
	CameraPort int    // UDP port the external encoder pushes RTP to
	PlayerAddr string // UDP address the remote stream is forwarded to
	MimeType   string // local track MIME type

	Discover bool // join: locate the host via mDNS instead of -url
	Debug    bool
}

// Defaults for the media edges; chosen to line up with common ffmpeg/ffplay
// invocations.
const (
	DefaultCameraPort = 5004
	DefaultPlayerAddr = "127.0.0.1:5006"
	DefaultMimeType   = webrtc.MimeTypeH264
)

// FillFromEnv populates unset secret-ish fields from the environment.
func (c *Config) FillFromEnv() {
	if c.Passphrase == "" {
		c.Passphrase = os.Getenv(EnvKey)
	}
	if c.Broker == "" {
		c.Broker = os.Getenv(EnvBroker)
	}
}

// Validate checks the configuration for the selected role.
func (c *Config) Validate() error {
	if c.Passphrase == "" {
		return ErrMissingKey
	}

	switch c.Role {
	case RoleHost:
	case RoleJoin:
		if c.RelayURL == "" && c.Broker == "" && !c.Discover {
			return errors.New("config: join needs -url, -broker, or -discover")
		}
		// A discovered relay URL has no PIN in it; without -pin the host
		// would just reject the dial with a 401.
		if c.RelayURL == "" && c.Broker == "" && c.Discover && c.PIN == "" {
			return errors.New("config: -discover needs -pin (shown on the host)")
		}
	default:
		return fmt.Errorf("config: invalid role %q", c.Role)
	}

	if c.Broker != "" && c.Role == RoleJoin && c.Room == "" {
		return errors.New("config: -broker needs -room on the joining side")
	}

	if c.CameraPort < 1 || c.CameraPort > 65535 {
		return fmt.Errorf("config: invalid camera port %d", c.CameraPort)
	}
	return nil
}
