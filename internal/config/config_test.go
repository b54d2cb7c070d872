package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Client.PollInterval != time.Second {
		t.Errorf("Client.PollInterval = %s, want 1s", cfg.Client.PollInterval)
	}
	if cfg.Client.Timeout != 10*time.Second {
		t.Errorf("Client.Timeout = %s, want 10s", cfg.Client.Timeout)
	}
	if cfg.Server.MaxStreamClients != 16 {
		t.Errorf("Server.MaxStreamClients = %d, want 16", cfg.Server.MaxStreamClients)
	}
	if cfg.Client.Transport != TransportPoll {
		t.Errorf("Client.Transport = %q, want %q", cfg.Client.Transport, TransportPoll)
	}
	if cfg.Client.SeenRetention != 0 {
		t.Errorf("Client.SeenRetention = %d, want 0", cfg.Client.SeenRetention)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yaml := `
server:
  port: 9090
  host: "0.0.0.0"
  token: secret
status:
  file: /var/run/dongler.jsonl
client:
  transport: stream
  poll_interval: 250ms
  seen_retention: 600
  metrics_addr: 127.0.0.1:9464
log:
  development: true
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Client.MetricsAddr != "127.0.0.1:9464" {
		t.Errorf("Client.MetricsAddr = %q, want 127.0.0.1:9464", cfg.Client.MetricsAddr)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Addr() != "0.0.0.0:9090" {
		t.Errorf("Addr() = %q, want %q", cfg.Addr(), "0.0.0.0:9090")
	}
	if cfg.Server.Token != "secret" {
		t.Errorf("Server.Token = %q, want secret", cfg.Server.Token)
	}
	if cfg.Status.File != "/var/run/dongler.jsonl" {
		t.Errorf("Status.File = %q", cfg.Status.File)
	}
	if cfg.Client.Transport != TransportStream {
		t.Errorf("Client.Transport = %q, want stream", cfg.Client.Transport)
	}
	if cfg.Client.PollInterval != 250*time.Millisecond {
		t.Errorf("Client.PollInterval = %s, want 250ms", cfg.Client.PollInterval)
	}
	if cfg.Client.SeenRetention != 600 {
		t.Errorf("Client.SeenRetention = %d, want 600", cfg.Client.SeenRetention)
	}
	if !cfg.Log.Development {
		t.Error("Log.Development = false, want true")
	}

	// Defaults should still be applied for unspecified fields.
	if cfg.Client.Timeout != 10*time.Second {
		t.Errorf("Client.Timeout should keep default, got %s", cfg.Client.Timeout)
	}
	if cfg.Mock.Interval == 0 {
		t.Error("Mock.Interval should have default, got 0")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Load() on missing file should return error")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want default 5000", cfg.Server.Port)
	}

	cfg, err = LoadOrDefault("")
	if err != nil || cfg == nil {
		t.Fatalf("LoadOrDefault(\"\") = %v, %v", cfg, err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte(":::not valid yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(cfgPath); err == nil {
		t.Fatal("Load() with invalid YAML should return error")
	}
	if _, err := LoadOrDefault(cfgPath); err == nil {
		t.Fatal("LoadOrDefault() must not hide a broken file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"stream clients", func(c *Config) { c.Server.MaxStreamClients = -1 }, "server.max_stream_clients"},
		{"status file", func(c *Config) { c.Status.File = "" }, "status.file"},
		{"tail interval", func(c *Config) { c.Status.TailInterval = 0 }, "status.tail_interval"},
		{"mock interval", func(c *Config) { c.Mock.Interval = 0 }, "mock.interval"},
		{"transport", func(c *Config) { c.Client.Transport = "carrier-pigeon" }, "client.transport"},
		{"poll interval", func(c *Config) { c.Client.PollInterval = -time.Second }, "client.poll_interval"},
		{"timeout", func(c *Config) { c.Client.Timeout = 0 }, "client.timeout"},
		{"retention", func(c *Config) { c.Client.SeenRetention = -1 }, "client.seen_retention"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestGenerateToken(t *testing.T) {
	tok, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	if len(tok) != 32 { // 16 bytes = 32 hex chars
		t.Errorf("token length = %d, want 32", len(tok))
	}

	tok2, _ := GenerateToken()
	if tok == tok2 {
		t.Error("two generated tokens should not be identical")
	}
}
