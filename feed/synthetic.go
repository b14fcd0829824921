package feed

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"hft-engine-go/infrastructure/logger"
	"hft-engine-go/market"
	"hft-engine-go/queue"
)

// Synthetic 合成行情：中间价做随机游走，买卖量独立抽样使
// imbalance 在 [-1,1] 上自然波动。相同 Seed 产生相同序列。
type Synthetic struct {
	Symbol      string
	Duration    time.Duration
	TicksPerSec int
	StartPrice  float64
	Seed        int64
	Ring        *queue.Ring
	Drops       DropCounter
	Logger      *logger.Logger

	rng *rand.Rand
	mid float64
}

// Run 按固定速率生成tick，直到持续时间结束或 ctx 取消。
func (s *Synthetic) Run(ctx context.Context) error {
	s.init()

	interval := time.Second / time.Duration(s.TicksPerSec)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	deadline := time.Now().Add(s.Duration)
	count := 0
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			push(s.Ring, s.Drops, s.next())
			count++
		}
	}

	if s.Logger != nil {
		s.Logger.Info("synthetic feed finished",
			zap.String("symbol", s.Symbol),
			zap.Int("ticks", count))
	}
	return nil
}

// Burst 不节流地生成 n 条tick，供回测与压测使用。
func (s *Synthetic) Burst(n int) {
	s.init()
	for i := 0; i < n; i++ {
		push(s.Ring, s.Drops, s.next())
	}
}

func (s *Synthetic) init() {
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(s.Seed))
	}
	if s.mid == 0 {
		s.mid = s.StartPrice
	}
	if s.TicksPerSec <= 0 {
		s.TicksPerSec = 1000
	}
}

// next 生成下一条tick。价格步长1bp量级，价差固定一档最小变动。
func (s *Synthetic) next() queue.Item {
	s.mid += s.rng.NormFloat64() * s.mid * 0.0001
	if s.mid < 0.01 {
		s.mid = 0.01
	}

	bid := s.mid - 0.005
	ask := s.mid + 0.005
	bidSz := float64(100 + s.rng.Intn(1900))
	askSz := float64(100 + s.rng.Intn(1900))

	return queue.Item{
		Symbol: s.Symbol,
		Tick: market.NewTick(uint64(time.Now().UnixNano()),
			bid, bidSz, ask, askSz,
			bid-0.01, bidSz/2, ask+0.01, askSz/2,
			uint64(s.rng.Intn(100_000))),
	}
}
