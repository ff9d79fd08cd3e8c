package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// TerminalConfig holds the credentials sent in the terminal handshake.
// When Host is empty the bridge connects without a handshake.
type TerminalConfig struct {
	Host     string `toml:"host"`
	Username string `toml:"username"`
	KeyFile  string `toml:"key_file"`
}

// Config holds all deploydeck configuration.
type Config struct {
	Server                string         `toml:"server"`
	SocketPath            string         `toml:"socket_path"`
	TerminalPath          string         `toml:"terminal_path"`
	ReconnectDelaySeconds int            `toml:"reconnect_delay_seconds"`
	PingIntervalSeconds   int            `toml:"ping_interval_seconds"`
	LogFile               string         `toml:"log_file"`
	LastRepoURL           string         `toml:"last_repo_url"`
	Terminal              TerminalConfig `toml:"terminal"`
}

const (
	defaultServer         = "http://localhost:8000"
	defaultSocketPath     = "/ws"
	defaultTerminalPath   = "/ws/terminal"
	defaultReconnectDelay = 3 * time.Second
)

// ServerOrDefault returns Server if set, otherwise the local development server.
func (c Config) ServerOrDefault() string {
	if c.Server != "" {
		return strings.TrimSuffix(c.Server, "/")
	}
	return defaultServer
}

// ReconnectDelayOrDefault returns the fixed delay between reconnect attempts.
func (c Config) ReconnectDelayOrDefault() time.Duration {
	if c.ReconnectDelaySeconds > 0 {
		return time.Duration(c.ReconnectDelaySeconds) * time.Second
	}
	return defaultReconnectDelay
}

// PingInterval returns the keepalive interval; zero disables keepalive pings.
func (c Config) PingInterval() time.Duration {
	if c.PingIntervalSeconds > 0 {
		return time.Duration(c.PingIntervalSeconds) * time.Second
	}
	return 0
}

// SocketURL returns the websocket URL of the primary channel.
func (c Config) SocketURL() (string, error) {
	path := c.SocketPath
	if path == "" {
		path = defaultSocketPath
	}
	return websocketURL(c.ServerOrDefault(), path)
}

// TerminalURL returns the websocket URL of the terminal channel.
func (c Config) TerminalURL() (string, error) {
	path := c.TerminalPath
	if path == "" {
		path = defaultTerminalPath
	}
	return websocketURL(c.ServerOrDefault(), path)
}

// LogFileOrDefault returns the log file used while the dashboard owns the terminal.
func (c Config) LogFileOrDefault() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "deploydeck", "deploydeck.log")
}

// websocketURL maps an http(s) server address onto the matching ws(s) URL.
func websocketURL(server, path string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parsing server address: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String(), nil
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables always take precedence over file values:
//   - DEPLOYDECK_SERVER        overrides server
//   - DEPLOYDECK_TERMINAL_HOST overrides terminal.host
//   - DEPLOYDECK_TERMINAL_USER overrides terminal.username
//   - DEPLOYDECK_TERMINAL_KEY  overrides terminal.key_file
func LoadFrom(path string) (Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// loadFile decodes path without environment overrides. A missing file yields
// an empty config.
func loadFile(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// SaveLastRepo records repoURL as last_repo_url in the file at path. Only the
// file's own values are written back: flag and environment overrides of the
// running process never reach the file.
func SaveLastRepo(path, repoURL string) error {
	cfg, err := loadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	cfg.LastRepoURL = repoURL
	return Save(path, cfg)
}

// DefaultConfigPath returns the default path for the deploydeck config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return home + "/.config/deploydeck/config.toml"
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DEPLOYDECK_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv("DEPLOYDECK_TERMINAL_HOST"); v != "" {
		cfg.Terminal.Host = v
	}
	if v := os.Getenv("DEPLOYDECK_TERMINAL_USER"); v != "" {
		cfg.Terminal.Username = v
	}
	if v := os.Getenv("DEPLOYDECK_TERMINAL_KEY"); v != "" {
		cfg.Terminal.KeyFile = v
	}
}

// Save writes cfg to the given TOML file path, creating parent directories as needed.
// Existing file contents are overwritten. Permissions on the written file are 0600.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}
