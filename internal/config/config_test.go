package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/pushd/internal/push"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "pushd", cfg.Notification.AppName)
	assert.Equal(t, push.DefaultIconRef, cfg.Notification.Icon)
	assert.Equal(t, push.DefaultIconRef, cfg.Notification.Badge)
	assert.Equal(t, "normal", cfg.Notification.Urgency)
	assert.Equal(t, "dbus", cfg.Presenter.Kind)
	assert.True(t, cfg.Transports.Webhook.Enabled)
	assert.Equal(t, DefaultWebhookAddr, cfg.Transports.Webhook.Addr)
	assert.False(t, cfg.Transports.NATS.Enabled)
	assert.Equal(t, []string{"webhook"}, cfg.EnabledTransports())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/pushd.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Notification, cfg.Notification)
}

func TestLoadConfig_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pushd.toml")

	content := `
[identity]
api_key = "AIza-test"
app_id = "1:17657815993:web:2ec9c405c656315dd90c68"
sender_id = "17657815993"
project_id = "recallsentry-app"
auth_domain = "recallsentry-app.firebaseapp.com"
storage_bucket = "recallsentry-app.firebasestorage.app"
measurement_id = "G-C8PDB2BHM1"

[notification]
app_name = "RecallSentry"
icon = "/icons/Icon-512.png"
urgency = "critical"
expire_timeout = "15s"

[presenter]
kind = "stdout"
format = "yaml"

[transports.webhook]
enabled = true
addr = ":9000"
require_key = true

[transports.nats]
enabled = true
subject = "recalls"
queue = "pushd"

[transports.websocket]
enabled = true
url = "wss://push.example.com/v1/stream"
retry_backoff = "2500"

[transports.spool]
enabled = true
dir = "/tmp/pushd-spool"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "17657815993", cfg.Identity.SenderID)
	assert.Equal(t, "G-C8PDB2BHM1", cfg.Identity.MeasurementID)
	assert.Equal(t, "RecallSentry", cfg.Notification.AppName)
	assert.Equal(t, push.IconRefs{Icon: "/icons/Icon-512.png", Badge: push.DefaultIconRef}, cfg.IconRefs())
	assert.Equal(t, 15*time.Second, cfg.Notification.ExpireTimeout.Duration())
	assert.Equal(t, "yaml", cfg.Presenter.Format)
	assert.Equal(t, ":9000", cfg.Transports.Webhook.Addr)
	assert.Equal(t, "recalls", cfg.Transports.NATS.Subject)
	assert.Equal(t, DefaultNATSURL, cfg.Transports.NATS.URL)
	assert.Equal(t, 2500*time.Millisecond, cfg.Transports.WebSocket.RetryBackoff.Duration())
	assert.Equal(t, []string{"webhook", "nats", "websocket", "spool"}, cfg.EnabledTransports())
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pushd.toml")
	require.NoError(t, os.WriteFile(path, []byte("[notification\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pushd.toml")
	require.NoError(t, os.WriteFile(path, []byte("[presenter]\nkind = \"gtk\"\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid presenter kind")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"bad format", func(c *Config) { c.Presenter.Format = "xml" }, true},
		{"bad urgency", func(c *Config) { c.Notification.Urgency = "urgent" }, true},
		{"negative expire", func(c *Config) { c.Notification.ExpireTimeout = Duration(-time.Second) }, true},
		{"webhook without addr", func(c *Config) { c.Transports.Webhook.Addr = "" }, true},
		{"require key without key", func(c *Config) { c.Transports.Webhook.RequireKey = true }, true},
		{"require key with key", func(c *Config) {
			c.Transports.Webhook.RequireKey = true
			c.Identity.APIKey = "k"
		}, false},
		{"websocket http url", func(c *Config) {
			c.Transports.WebSocket.Enabled = true
			c.Transports.WebSocket.URL = "http://example.com"
		}, true},
		{"spool without dir", func(c *Config) {
			c.Transports.Spool.Enabled = true
			c.Transports.Spool.Dir = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"5s", 5 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"5000", 5 * time.Second, false},
		{"0", 0, false},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d.Duration())
		})
	}
}

func TestConfig_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pushd.toml")

	cfg := DefaultConfig()
	cfg.Identity.SenderID = "17657815993"
	cfg.Notification.ExpireTimeout = Duration(10 * time.Second)
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "17657815993", loaded.Identity.SenderID)
	assert.Equal(t, 10*time.Second, loaded.Notification.ExpireTimeout.Duration())
}

func TestConfigPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")

	assert.Equal(t, "/xdg/config/pushd/pushd.toml", ConfigPath())
	assert.Equal(t, "/xdg/data/pushd/spool", SpoolPath())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "spool"), expandPath("~/spool"))
	assert.Equal(t, "/abs/spool", expandPath("/abs/spool"))
}
