package risk

import "fmt"

// PDTThreshold 监管口径的日内交易敞口阈值（USD）。
const PDTThreshold = 25_000

// ReferenceQty 名义价值校验使用的基准手数。
const ReferenceQty = 100

// Limits 风控配置，启动时加载一次，引擎生命周期内只读。
type Limits struct {
	MaxSpreadBps       float64 `yaml:"maxSpreadBps"`
	MaxNotional        float64 `yaml:"maxNotional"`
	DailyLossCap       float64 `yaml:"dailyLossCap"`
	MaxOrdersPerSecond float64 `yaml:"maxOrdersPerSecond"`
	PDTEnabled         bool    `yaml:"pdtEnabled"`
}

// Limiter 是无状态的下单前置校验；敞口/盈亏由共享的 ExposureTracker 提供，
// 任何策略提案都经过同一个 Limiter 与同一份计数。
type Limiter struct {
	cfg Limits
}

func NewLimiter(cfg Limits) *Limiter {
	return &Limiter{cfg: cfg}
}

// Allow 校验 symbol 在当前中间价下是否可交易。realizedPnL 是累计已实现
// 盈亏（有符号）；名义敞口走单独的计数，不混入本判断（两者是不同的
// 风险维度）。返回 nil 表示放行，否则返回可判别的 sentinel 错误。
func (l *Limiter) Allow(symbol string, midPrice, realizedPnL float64) error {
	if l.cfg.PDTEnabled && realizedPnL > PDTThreshold {
		return fmt.Errorf("%w: %s pnl %.2f > %d", ErrPDTExceeded, symbol, realizedPnL, PDTThreshold)
	}
	if realizedPnL > l.cfg.DailyLossCap {
		return fmt.Errorf("%w: %s pnl %.2f > cap %.2f", ErrDailyLossCap, symbol, realizedPnL, l.cfg.DailyLossCap)
	}
	if midPrice*ReferenceQty > l.cfg.MaxNotional {
		return fmt.Errorf("%w: %s %.2f*%d > %.2f", ErrNotionalExceeded, symbol, midPrice, ReferenceQty, l.cfg.MaxNotional)
	}
	return nil
}

// CheckSpread 在策略评估之前拒绝过宽/过期的市场。
func (l *Limiter) CheckSpread(spreadBps float64) error {
	if spreadBps > l.cfg.MaxSpreadBps {
		return fmt.Errorf("%w: %.2f > %.2f", ErrSpreadTooWide, spreadBps, l.cfg.MaxSpreadBps)
	}
	return nil
}
