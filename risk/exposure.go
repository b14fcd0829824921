package risk

import (
	"math"
	"sync/atomic"
)

// ExposureTracker 以原子计数维护两个独立的风险维度：累计已实现盈亏与
// 总名义敞口。多策略并发提案时共享同一个 tracker，避免各自记账导致
// 风险叠加越限。
type ExposureTracker struct {
	realizedPnLBits   atomic.Uint64
	grossNotionalBits atomic.Uint64
}

func NewExposureTracker() *ExposureTracker {
	return &ExposureTracker{}
}

// AddRealizedPnL 累加一笔已实现盈亏（有符号）。
func (t *ExposureTracker) AddRealizedPnL(delta float64) {
	addFloat(&t.realizedPnLBits, delta)
}

// RealizedPnL 返回累计已实现盈亏。
func (t *ExposureTracker) RealizedPnL() float64 {
	return math.Float64frombits(t.realizedPnLBits.Load())
}

// AddNotional 在下单成功时累加名义敞口。
func (t *ExposureTracker) AddNotional(v float64) {
	if v < 0 {
		return
	}
	addFloat(&t.grossNotionalBits, v)
}

// ReleaseNotional 在订单终态（成交平仓/撤销/拒绝）后释放名义敞口。
func (t *ExposureTracker) ReleaseNotional(v float64) {
	if v < 0 {
		return
	}
	addFloat(&t.grossNotionalBits, -v)
}

// GrossNotional 返回当前总名义敞口。
func (t *ExposureTracker) GrossNotional() float64 {
	return math.Float64frombits(t.grossNotionalBits.Load())
}

// addFloat CAS 循环实现 float64 的原子累加。
func addFloat(bits *atomic.Uint64, delta float64) {
	for {
		old := bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if bits.CompareAndSwap(old, next) {
			return
		}
	}
}
