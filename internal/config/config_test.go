package config_test

import (
	"errors"
	"testing"

	"github.com/peercam/peercam/internal/config"
)

func base(role config.Role) config.Config {
	return config.Config{
		Role:       role,
		Passphrase: "secret",
		RelayAddr:  ":0",
		RelayURL:   "ws://127.0.0.1:1234/ws?pin=1111",
		CameraPort: config.DefaultCameraPort,
		PlayerAddr: config.DefaultPlayerAddr,
		MimeType:   config.DefaultMimeType,
	}
}

// TestValidate covers the role-dependent validation rules.
func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"valid host", func(c *config.Config) { c.Role = config.RoleHost }, false},
		{"valid join via url", func(c *config.Config) {}, false},
		{"valid join via broker", func(c *config.Config) {
			c.RelayURL = ""
			c.Broker = "tcp://broker:1883"
			c.Room = "room-1"
		}, false},
		{"valid join via discover", func(c *config.Config) {
			c.RelayURL = ""
			c.Discover = true
			c.PIN = "1234"
		}, false},
		{"join via discover without pin", func(c *config.Config) {
			c.RelayURL = ""
			c.Discover = true
		}, true},
		{"join without any transport", func(c *config.Config) { c.RelayURL = "" }, true},
		{"join broker without room", func(c *config.Config) {
			c.RelayURL = ""
			c.Broker = "tcp://broker:1883"
		}, true},
		{"invalid role", func(c *config.Config) { c.Role = "viewer" }, true},
		{"camera port out of range", func(c *config.Config) { c.CameraPort = 0 }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base(config.RoleJoin)
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// TestValidateRequiresPassphrase verifies there is no default key: a missing
// passphrase is a startup error.
func TestValidateRequiresPassphrase(t *testing.T) {
	cfg := base(config.RoleHost)
	cfg.Passphrase = ""
	if err := cfg.Validate(); !errors.Is(err, config.ErrMissingKey) {
		t.Errorf("got %v, want ErrMissingKey", err)
	}
}

// TestFillFromEnv verifies environment fallback and flag precedence.
func TestFillFromEnv(t *testing.T) {
	t.Setenv(config.EnvKey, "env-secret")
	t.Setenv(config.EnvBroker, "tcp://env-broker:1883")

	t.Run("fills unset fields", func(t *testing.T) {
		var cfg config.Config
		cfg.FillFromEnv()
		if cfg.Passphrase != "env-secret" {
			t.Errorf("Passphrase = %q", cfg.Passphrase)
		}
		if cfg.Broker != "tcp://env-broker:1883" {
			t.Errorf("Broker = %q", cfg.Broker)
		}
	})

	t.Run("flags win over environment", func(t *testing.T) {
		cfg := config.Config{Passphrase: "flag-secret", Broker: "tcp://flag-broker:1883"}
		cfg.FillFromEnv()
		if cfg.Passphrase != "flag-secret" {
			t.Errorf("Passphrase = %q", cfg.Passphrase)
		}
		if cfg.Broker != "tcp://flag-broker:1883" {
			t.Errorf("Broker = %q", cfg.Broker)
		}
	})
}
