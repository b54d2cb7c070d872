package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Transports the dashboard can fetch events with.
const (
	TransportPoll   = "poll"
	TransportStream = "stream"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Status StatusConfig `yaml:"status"`
	Mock   MockConfig   `yaml:"mock"`
	Client ClientConfig `yaml:"client"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
	// Token, when set, is required as a bearer token or ?token= on every
	// endpoint except /healthz.
	Token string `yaml:"token"`
	// MaxStreamClients caps concurrent /ws connections. Zero is unlimited.
	MaxStreamClients int `yaml:"max_stream_clients"`
}

type StatusConfig struct {
	File string `yaml:"file"`
	// TailInterval is how often the stream hub checks the file for new lines.
	TailInterval time.Duration `yaml:"tail_interval"`
}

type MockConfig struct {
	Interval time.Duration `yaml:"interval"`
	Devices  int           `yaml:"devices"`
}

type ClientConfig struct {
	URL          string        `yaml:"url"`
	Token        string        `yaml:"token"`
	Transport    string        `yaml:"transport"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
	// SeenRetention bounds the seen-hash set, in seconds behind the
	// watermark. Zero keeps every hash for the whole session.
	SeenRetention int64 `yaml:"seen_retention"`
	// MetricsAddr, when set, is where the dashboard serves /metrics.
	MetricsAddr string `yaml:"metrics_addr"`
}

type LogConfig struct {
	Development bool   `yaml:"development"`
	File        string `yaml:"file"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             5000,
			Host:             "127.0.0.1",
			MaxStreamClients: 16,
		},
		Status: StatusConfig{
			File:         "/tmp/macdongler_status.jsonl",
			TailInterval: 250 * time.Millisecond,
		},
		Mock: MockConfig{
			Interval: 500 * time.Millisecond,
			Devices:  40,
		},
		Client: ClientConfig{
			URL:          "http://127.0.0.1:5000",
			Transport:    TransportPoll,
			PollInterval: time.Second,
			Timeout:      10 * time.Second,
		},
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaultConfig()
}

// Load reads a YAML file on top of the defaults. Fields the file leaves out
// keep their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return defaultConfig(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxStreamClients < 0 {
		return fmt.Errorf("server.max_stream_clients must not be negative, got %d", c.Server.MaxStreamClients)
	}
	if c.Status.File == "" {
		return errors.New("status.file is empty")
	}
	if c.Status.TailInterval <= 0 {
		return fmt.Errorf("status.tail_interval must be positive, got %s", c.Status.TailInterval)
	}
	if c.Mock.Interval <= 0 {
		return fmt.Errorf("mock.interval must be positive, got %s", c.Mock.Interval)
	}
	if c.Mock.Devices < 0 {
		return fmt.Errorf("mock.devices must not be negative, got %d", c.Mock.Devices)
	}
	switch c.Client.Transport {
	case TransportPoll, TransportStream:
	default:
		return fmt.Errorf("client.transport %q: want %q or %q", c.Client.Transport, TransportPoll, TransportStream)
	}
	if c.Client.PollInterval <= 0 {
		return fmt.Errorf("client.poll_interval must be positive, got %s", c.Client.PollInterval)
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("client.timeout must be positive, got %s", c.Client.Timeout)
	}
	if c.Client.SeenRetention < 0 {
		return fmt.Errorf("client.seen_retention must not be negative, got %d", c.Client.SeenRetention)
	}
	return nil
}

// Addr is the listen address of the status server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GenerateToken returns a random 128-bit token as 32 hex characters.
func GenerateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
