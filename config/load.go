package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hft-engine-go/infrastructure/logger"
	"hft-engine-go/risk"
	"hft-engine-go/strategy"
)

// Feed 模式
const (
	FeedLive      = "live"
	FeedReplay    = "replay"
	FeedSynthetic = "synthetic"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env     string        `yaml:"env"`
	Logger  logger.Config `yaml:"logger"`
	Metrics MetricsConfig `yaml:"metrics"`
	Engine  EngineConfig  `yaml:"engine"`
	Risk    risk.Limits   `yaml:"risk"`
	Gateway GatewayConfig `yaml:"gateway"`
	Feed    FeedConfig    `yaml:"feed"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // 为空则不暴露 /metrics
}

type EngineConfig struct {
	Core          int      `yaml:"core"`          // 绑定CPU核；负数不绑核
	QueueCapacity int      `yaml:"queueCapacity"` // 0 使用默认1<<20；否则必须是2的幂
	Strategies    []string `yaml:"strategies"`
	Symbols       []string `yaml:"symbols"`
}

type GatewayConfig struct {
	BaseURL   string `yaml:"baseURL"`
	APIKey    string `yaml:"apiKey"`
	APISecret string `yaml:"apiSecret"`
	Paper     bool   `yaml:"paper"` // true 使用mock网关
}

type FeedConfig struct {
	Mode        string          `yaml:"mode"` // live|replay|synthetic
	Endpoint    string          `yaml:"endpoint"`
	ReplayPath  string          `yaml:"replayPath"`
	ReplaySpeed float64         `yaml:"replaySpeed"` // 0 不节流
	Synthetic   SyntheticConfig `yaml:"synthetic"`
}

type SyntheticConfig struct {
	Symbol      string  `yaml:"symbol"`
	Seconds     int     `yaml:"seconds"`
	TicksPerSec int     `yaml:"ticksPerSec"`
	StartPrice  float64 `yaml:"startPrice"`
	Seed        int64   `yaml:"seed"`
}

// Default 返回未出现在YAML中的字段使用的默认值。
func Default() AppConfig {
	return AppConfig{
		Env:    "dev",
		Logger: logger.DefaultConfig(),
		Engine: EngineConfig{Core: -1},
		Feed:   FeedConfig{Mode: FeedSynthetic, ReplaySpeed: 1.0},
	}
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides sensitive fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("HFT_GATEWAY_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("HFT_GATEWAY_API_SECRET"); v != "" {
		cfg.Gateway.APISecret = v
	}
	return cfg, Validate(cfg)
}

// Validate ensures required fields are present and consistent.
// 配置错误在启动时fatal，引擎运行期内配置只读。
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}

	if cfg.Engine.QueueCapacity < 0 || (cfg.Engine.QueueCapacity != 0 &&
		cfg.Engine.QueueCapacity&(cfg.Engine.QueueCapacity-1) != 0) {
		return fmt.Errorf("engine.queueCapacity must be a power of two, got %d", cfg.Engine.QueueCapacity)
	}
	if len(cfg.Engine.Strategies) == 0 {
		return errors.New("engine.strategies requires at least one strategy")
	}
	for _, name := range cfg.Engine.Strategies {
		if _, err := strategy.ParseKind(name); err != nil {
			return fmt.Errorf("engine.strategies: %w", err)
		}
	}

	if cfg.Risk.MaxSpreadBps <= 0 {
		return errors.New("risk.maxSpreadBps must be > 0")
	}
	if cfg.Risk.MaxNotional <= 0 {
		return errors.New("risk.maxNotional must be > 0")
	}
	if cfg.Risk.DailyLossCap <= 0 {
		return errors.New("risk.dailyLossCap must be > 0")
	}
	if cfg.Risk.MaxOrdersPerSecond < 0 {
		return errors.New("risk.maxOrdersPerSecond must be >= 0")
	}

	switch cfg.Feed.Mode {
	case FeedLive:
		if cfg.Feed.Endpoint == "" {
			return errors.New("feed.endpoint is required in live mode")
		}
	case FeedReplay:
		if cfg.Feed.ReplayPath == "" {
			return errors.New("feed.replayPath is required in replay mode")
		}
		if cfg.Feed.ReplaySpeed < 0 {
			return errors.New("feed.replaySpeed must be >= 0")
		}
	case FeedSynthetic:
		if cfg.Feed.Synthetic.StartPrice <= 0 {
			return errors.New("feed.synthetic.startPrice must be > 0")
		}
		if cfg.Feed.Synthetic.TicksPerSec <= 0 {
			return errors.New("feed.synthetic.ticksPerSec must be > 0")
		}
	default:
		return fmt.Errorf("feed.mode must be live|replay|synthetic, got %q", cfg.Feed.Mode)
	}

	// live行情配paper网关是合法的（paper trading对着真实盘口）
	if !cfg.Gateway.Paper {
		if cfg.Gateway.BaseURL == "" {
			return errors.New("gateway.baseURL is required for live trading")
		}
		if cfg.Gateway.APIKey == "" || cfg.Gateway.APISecret == "" {
			return errors.New("gateway.apiKey/apiSecret is required for live trading (or env overrides)")
		}
	}
	return nil
}
