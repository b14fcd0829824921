package strategy

import (
	"fmt"
	"strings"

	"hft-engine-go/market"
)

// Side 表示交易方向。
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// Kind 是内置策略类型。
type Kind uint8

const (
	Scalping Kind = iota
	MarketMaking
	Arbitrage
	Momentum
)

func (k Kind) String() string {
	switch k {
	case Scalping:
		return "scalping"
	case MarketMaking:
		return "market_making"
	case Arbitrage:
		return "arbitrage"
	case Momentum:
		return "momentum"
	default:
		return "unknown"
	}
}

// ParseKind 解析配置中的策略名。
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "scalping":
		return Scalping, nil
	case "market_making", "marketmaking":
		return MarketMaking, nil
	case "arbitrage":
		return Arbitrage, nil
	case "momentum":
		return Momentum, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q", name)
	}
}

// Params 是一组固定阈值：订单簿失衡阈值、目标利润与止损（bps）。
type Params struct {
	ImbalanceThreshold float64
	TargetProfitBps    float64
	StopBps            float64
}

// 内置策略阈值表。
var paramsTable = map[Kind]Params{
	Scalping:     {ImbalanceThreshold: 0.2, TargetProfitBps: 2.0, StopBps: 1.0},
	MarketMaking: {ImbalanceThreshold: 0.1, TargetProfitBps: 0.5, StopBps: 2.0},
	Arbitrage:    {ImbalanceThreshold: 0.3, TargetProfitBps: 5.0, StopBps: 1.0},
	Momentum:     {ImbalanceThreshold: 0.4, TargetProfitBps: 10.0, StopBps: 5.0},
}

// ParamsFor 返回策略的阈值组。
func ParamsFor(k Kind) Params {
	return paramsTable[k]
}

// BaseLot 是基础下单手数；价差超过价格 1% 时减半（粗粒度的波动缩量）。
const BaseLot = 100

// Intent 是一次交易意图：方向、限价与数量。IOC 语义由网关请求承载。
type Intent struct {
	Side    Side
	LimitPx float64
	Qty     uint64
}

// Strategy 绑定策略类型与阈值；决策函数是纯函数，无可变状态。
type Strategy struct {
	Kind   Kind
	Params Params
}

// New 构造内置策略。
func New(k Kind) Strategy {
	return Strategy{Kind: k, Params: ParamsFor(k)}
}

// Decide 将一条 tick 映射为可选的交易意图：
//   - imbalance >  阈值 且 microprice > mid：买一价买入
//   - imbalance < -阈值 且 microprice < mid：卖一价卖出
//   - 否则不出手
func (s Strategy) Decide(t market.Tick) (Intent, bool) {
	mid := t.Mid()
	switch {
	case t.Imbalance > s.Params.ImbalanceThreshold && t.MicroPx > mid:
		return Intent{Side: Buy, LimitPx: t.BidPx, Qty: sizeFor(t)}, true
	case t.Imbalance < -s.Params.ImbalanceThreshold && t.MicroPx < mid:
		return Intent{Side: Sell, LimitPx: t.AskPx, Qty: sizeFor(t)}, true
	default:
		return Intent{}, false
	}
}

// sizeFor 按价差占价格比例缩量：spread_bps/100 > 1% 时基础手数减半。
func sizeFor(t market.Tick) uint64 {
	qty := uint64(BaseLot)
	if t.SpreadBpsV/100 > 0.01 {
		qty /= 2
	}
	return qty
}
