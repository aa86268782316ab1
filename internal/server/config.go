package server

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration, loaded from YAML. Zero values
// fall back to the defaults, so a partial file is fine.
type Config struct {
	Scenario string        `yaml:"scenario"`
	Tick     time.Duration `yaml:"tick"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Socket struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"socket"`

	WebSocket struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"websocket"`

	QUIC struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		CertFile string `yaml:"cert_file"`
		KeyFile  string `yaml:"key_file"`
	} `yaml:"quic"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`
}

// DefaultConfig enables the socket and websocket middlewares on the
// conventional simulation ports and leaves QUIC opt-in.
func DefaultConfig() Config {
	var cfg Config
	cfg.Tick = 16 * time.Millisecond
	cfg.Log.Level = "info"
	cfg.Socket.Enabled = true
	cfg.Socket.Addr = ":4000"
	cfg.WebSocket.Enabled = true
	cfg.WebSocket.Addr = ":4001"
	cfg.QUIC.Addr = ":4002"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Addr = ":9100"
	return cfg
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Tick <= 0 {
		return cfg, fmt.Errorf("tick must be positive, got %s", cfg.Tick)
	}
	return cfg, nil
}
