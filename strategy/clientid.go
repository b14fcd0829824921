package strategy

import (
	"strconv"
	"sync/atomic"
	"time"
)

// ClientIDGenerator 生成 {side}-{monotonic_nanos} 形式的幂等键。
// 纳秒读数相同（或时钟回拨）时单调递增，保证每次尝试的键唯一；
// 去重是下游网关的职责，引擎只负责不重复发键。
type ClientIDGenerator struct {
	lastNs atomic.Int64
}

func NewClientIDGenerator() *ClientIDGenerator {
	return &ClientIDGenerator{}
}

// Next returns a fresh idempotency key for the given side.
func (g *ClientIDGenerator) Next(side Side) string {
	now := time.Now().UnixNano()
	for {
		last := g.lastNs.Load()
		if now <= last {
			now = last + 1
		}
		if g.lastNs.CompareAndSwap(last, now) {
			break
		}
	}
	return side.String() + "-" + strconv.FormatInt(now, 10)
}
