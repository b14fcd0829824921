package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
env: dev
logger:
  level: info
  outputs: [stdout]
  format: json
metrics:
  addr: ":9100"
engine:
  core: -1
  queueCapacity: 1024
  strategies: [scalping, momentum]
  symbols: [AAPL]
risk:
  maxSpreadBps: 50
  maxNotional: 1000000
  dailyLossCap: 5000
  maxOrdersPerSecond: 100
  pdtEnabled: true
gateway:
  paper: true
feed:
  mode: synthetic
  synthetic:
    symbol: AAPL
    seconds: 10
    ticksPerSec: 1000
    startPrice: 100.0
    seed: 42
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.QueueCapacity != 1024 {
		t.Errorf("queueCapacity = %d", cfg.Engine.QueueCapacity)
	}
	if len(cfg.Engine.Strategies) != 2 {
		t.Errorf("strategies = %v", cfg.Engine.Strategies)
	}
	if !cfg.Risk.PDTEnabled {
		t.Error("pdtEnabled should parse")
	}
	if cfg.Risk.MaxSpreadBps != 50 {
		t.Errorf("maxSpreadBps = %f", cfg.Risk.MaxSpreadBps)
	}
	if cfg.Feed.Mode != FeedSynthetic {
		t.Errorf("feed mode = %s", cfg.Feed.Mode)
	}
}

func TestLoadDefaults(t *testing.T) {
	minimal := `
env: dev
engine:
  strategies: [scalping]
risk:
  maxSpreadBps: 50
  maxNotional: 1000000
  dailyLossCap: 5000
gateway:
  paper: true
feed:
  mode: synthetic
  synthetic:
    symbol: AAPL
    ticksPerSec: 100
    startPrice: 100.0
`
	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Core != -1 {
		t.Errorf("core default = %d, want -1 (unpinned)", cfg.Engine.Core)
	}
	if cfg.Engine.QueueCapacity != 0 {
		t.Errorf("queueCapacity default = %d", cfg.Engine.QueueCapacity)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("logger level default = %s", cfg.Logger.Level)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"queue capacity not power of two", func(c *AppConfig) { c.Engine.QueueCapacity = 1000 }, "power of two"},
		{"unknown strategy", func(c *AppConfig) { c.Engine.Strategies = []string{"martingale"} }, "strateg"},
		{"no strategies", func(c *AppConfig) { c.Engine.Strategies = nil }, "at least one"},
		{"zero spread limit", func(c *AppConfig) { c.Risk.MaxSpreadBps = 0 }, "maxSpreadBps"},
		{"zero notional limit", func(c *AppConfig) { c.Risk.MaxNotional = 0 }, "maxNotional"},
		{"zero loss cap", func(c *AppConfig) { c.Risk.DailyLossCap = 0 }, "dailyLossCap"},
		{"bad feed mode", func(c *AppConfig) { c.Feed.Mode = "quantum" }, "feed.mode"},
		{"replay without path", func(c *AppConfig) { c.Feed.Mode = FeedReplay; c.Feed.ReplayPath = "" }, "replayPath"},
		{"live feed without endpoint", func(c *AppConfig) { c.Feed.Mode = FeedLive; c.Feed.Endpoint = "" }, "endpoint"},
		{"live trading without creds", func(c *AppConfig) {
			c.Gateway.Paper = false
			c.Gateway.BaseURL = "https://broker.example.com"
		}, "apiKey"},
	}

	base, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatal(err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	yaml := strings.Replace(validYAML, "paper: true",
		"paper: false\n  baseURL: https://broker.example.com\n  apiKey: file-key\n  apiSecret: file-secret", 1)
	path := writeConfig(t, yaml)

	t.Setenv("HFT_GATEWAY_API_KEY", "env-key")
	t.Setenv("HFT_GATEWAY_API_SECRET", "env-secret")

	cfg, err := LoadWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gateway.APIKey != "env-key" || cfg.Gateway.APISecret != "env-secret" {
		t.Errorf("env overrides not applied: %s/%s", cfg.Gateway.APIKey, cfg.Gateway.APISecret)
	}
}
