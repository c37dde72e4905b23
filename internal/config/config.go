// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/pushd/internal/dbus"
	"github.com/jmylchreest/pushd/internal/presenter"
	"github.com/jmylchreest/pushd/internal/push"
)

// Default configuration values.
const (
	DefaultAppName     = "pushd"
	DefaultWebhookAddr = "127.0.0.1:8765"
	DefaultNATSURL     = "nats://127.0.0.1:4222"
	DefaultRedisAddr   = "127.0.0.1:6379"
	DefaultRetry       = 5 * time.Second
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "5s", "1m", "1h30m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the pushd configuration.
// Loaded from ~/.config/pushd/pushd.toml
type Config struct {
	Identity     push.Identity      `toml:"identity"`
	Notification NotificationConfig `toml:"notification"`
	Presenter    PresenterConfig    `toml:"presenter"`
	Transports   TransportsConfig   `toml:"transports"`
}

// NotificationConfig controls how notifications are presented.
type NotificationConfig struct {
	AppName       string   `toml:"app_name"`
	Icon          string   `toml:"icon"`
	Badge         string   `toml:"badge"`
	DesktopEntry  string   `toml:"desktop_entry"`
	Urgency       string   `toml:"urgency"`        // low, normal, critical
	ExpireTimeout Duration `toml:"expire_timeout"` // 0 = server default
}

// PresenterConfig selects the presentation capability.
type PresenterConfig struct {
	Kind   string `toml:"kind"`   // dbus, stdout
	Format string `toml:"format"` // json, yaml (stdout only)
}

// TransportsConfig holds per-transport settings.
type TransportsConfig struct {
	Webhook   WebhookConfig   `toml:"webhook"`
	NATS      NATSConfig      `toml:"nats"`
	Redis     RedisConfig     `toml:"redis"`
	WebSocket WebSocketConfig `toml:"websocket"`
	Spool     SpoolConfig     `toml:"spool"`
}

// WebhookConfig configures the HTTP webhook transport.
type WebhookConfig struct {
	Enabled      bool   `toml:"enabled"`
	Addr         string `toml:"addr"`
	RequireKey   bool   `toml:"require_key"` // require identity.api_key in the Authorization header
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// NATSConfig configures the NATS transport.
type NATSConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	Subject string `toml:"subject"`
	Queue   string `toml:"queue"`
}

// RedisConfig configures the Redis pub/sub transport.
type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Channel  string `toml:"channel"`
}

// WebSocketConfig configures the WebSocket gateway transport.
type WebSocketConfig struct {
	Enabled      bool     `toml:"enabled"`
	URL          string   `toml:"url"`
	RetryBackoff Duration `toml:"retry_backoff"`
}

// SpoolConfig configures the spool directory transport.
type SpoolConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Notification: NotificationConfig{
			AppName: DefaultAppName,
			Icon:    push.DefaultIconRef,
			Badge:   push.DefaultIconRef,
			Urgency: "normal",
		},
		Presenter: PresenterConfig{
			Kind:   presenter.KindDBus,
			Format: presenter.FormatJSON,
		},
		Transports: TransportsConfig{
			Webhook: WebhookConfig{
				Enabled: true,
				Addr:    DefaultWebhookAddr,
			},
			NATS: NATSConfig{
				URL:     DefaultNATSURL,
				Subject: "pushd.messages",
			},
			Redis: RedisConfig{
				Addr:    DefaultRedisAddr,
				Channel: "pushd:messages",
			},
			WebSocket: WebSocketConfig{
				RetryBackoff: Duration(DefaultRetry),
			},
			Spool: SpoolConfig{
				Dir: SpoolPath(),
			},
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "pushd", "pushd.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "pushd")
}

// SpoolPath returns the default spool directory.
func SpoolPath() string {
	return filepath.Join(DataPath(), "spool")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Transports.Spool.Dir = expandPath(cfg.Transports.Spool.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may carry the identity API key.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Presenter.Kind {
	case presenter.KindDBus, presenter.KindStdout:
	default:
		return fmt.Errorf("invalid presenter kind %q, must be one of: %v",
			c.Presenter.Kind, []string{presenter.KindDBus, presenter.KindStdout})
	}

	switch c.Presenter.Format {
	case "", presenter.FormatJSON, presenter.FormatYAML:
	default:
		return fmt.Errorf("invalid presenter format %q, must be json or yaml", c.Presenter.Format)
	}

	if _, err := dbus.ParseUrgency(c.Notification.Urgency); err != nil {
		return err
	}

	if c.Notification.ExpireTimeout < 0 {
		return fmt.Errorf("expire_timeout must not be negative")
	}

	t := c.Transports
	if t.Webhook.Enabled && t.Webhook.Addr == "" {
		return errors.New("transports.webhook.addr is required when the webhook is enabled")
	}
	if t.Webhook.Enabled && t.Webhook.RequireKey && c.Identity.APIKey == "" {
		return errors.New("transports.webhook.require_key needs identity.api_key")
	}
	if t.WebSocket.Enabled && !strings.HasPrefix(t.WebSocket.URL, "ws://") && !strings.HasPrefix(t.WebSocket.URL, "wss://") {
		return fmt.Errorf("transports.websocket.url must be a ws:// or wss:// URL, got %q", t.WebSocket.URL)
	}
	if t.Spool.Enabled && t.Spool.Dir == "" {
		return errors.New("transports.spool.dir is required when the spool is enabled")
	}
	return nil
}

// EnabledTransports returns the names of the enabled transports.
func (c *Config) EnabledTransports() []string {
	var names []string
	if c.Transports.Webhook.Enabled {
		names = append(names, "webhook")
	}
	if c.Transports.NATS.Enabled {
		names = append(names, "nats")
	}
	if c.Transports.Redis.Enabled {
		names = append(names, "redis")
	}
	if c.Transports.WebSocket.Enabled {
		names = append(names, "websocket")
	}
	if c.Transports.Spool.Enabled {
		names = append(names, "spool")
	}
	return names
}

// IconRefs returns the configured icon and badge.
func (c *Config) IconRefs() push.IconRefs {
	return push.IconRefs{Icon: c.Notification.Icon, Badge: c.Notification.Badge}
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
