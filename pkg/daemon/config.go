package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration, normally loaded from
// ~/.slate/config.toml. Every field has a working default so the daemon
// runs with no config file at all.
type Config struct {
	Daemon DaemonConfig `toml:"daemon"`
	Cache  CacheConfig  `toml:"cache"`
}

// DaemonConfig configures the socket, PID file and connection timeouts.
type DaemonConfig struct {
	Socket           string `toml:"socket"`
	PIDFile          string `toml:"pid-file"`
	ReadTimeoutSecs  int    `toml:"read-timeout-secs"`
	WriteTimeoutSecs int    `toml:"write-timeout-secs"`
}

// CacheConfig configures the shared compilation cache.
type CacheConfig struct {
	Capacity int `toml:"capacity"`

	// Persist is the path of the SQLite program store. Empty disables
	// persistence.
	Persist string `toml:"persist"`
}

// DefaultConfig returns the built-in defaults: a socket and PID file
// under the system temp directory, a 5s idle read timeout, a 30s write
// timeout and a 1000-entry cache with persistence disabled.
func DefaultConfig() *Config {
	socket := filepath.Join(os.TempDir(), "slate-daemon.sock")
	return &Config{
		Daemon: DaemonConfig{
			Socket:           socket,
			PIDFile:          socket + ".pid",
			ReadTimeoutSecs:  5,
			WriteTimeoutSecs: 30,
		},
		Cache: CacheConfig{
			Capacity: 1000,
		},
	}
}

// Load parses a TOML config file, filling unset fields with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadDefault loads ~/.slate/config.toml when it exists, otherwise the
// built-in defaults.
func LoadDefault() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}
	path := filepath.Join(home, ".slate", "config.toml")
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return Load(path)
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Daemon.Socket == "" {
		c.Daemon.Socket = def.Daemon.Socket
	}
	if c.Daemon.PIDFile == "" {
		c.Daemon.PIDFile = c.Daemon.Socket + ".pid"
	}
	if c.Daemon.ReadTimeoutSecs <= 0 {
		c.Daemon.ReadTimeoutSecs = def.Daemon.ReadTimeoutSecs
	}
	if c.Daemon.WriteTimeoutSecs <= 0 {
		c.Daemon.WriteTimeoutSecs = def.Daemon.WriteTimeoutSecs
	}
	if c.Cache.Capacity <= 0 {
		c.Cache.Capacity = def.Cache.Capacity
	}
}

// ReadTimeout returns the per-connection idle read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Daemon.ReadTimeoutSecs) * time.Second
}

// WriteTimeout returns the per-response write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Daemon.WriteTimeoutSecs) * time.Second
}
