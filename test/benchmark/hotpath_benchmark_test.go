package benchmark

import (
	"testing"
	"time"

	"hft-engine-go/market"
	"hft-engine-go/queue"
	"hft-engine-go/strategy"
)

func benchTick() market.Tick {
	return market.NewTick(uint64(time.Now().UnixNano()),
		100.00, 1500, 100.01, 500,
		99.99, 100, 100.02, 100, 10_000)
}

// BenchmarkRingPushPop 基准测试单生产者单消费者下的ring吞吐
func BenchmarkRingPushPop(b *testing.B) {
	ring, err := queue.NewRing(1 << 16)
	if err != nil {
		b.Fatal(err)
	}
	it := queue.Item{Symbol: "AAPL", Tick: benchTick()}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !ring.Push(it) {
			b.Fatal("ring full")
		}
		if _, ok := ring.TryPop(); !ok {
			b.Fatal("ring empty")
		}
	}
}

// BenchmarkRingConcurrentProducers 多生产者争用下的入队性能
func BenchmarkRingConcurrentProducers(b *testing.B) {
	ring, err := queue.NewRing(1 << 20)
	if err != nil {
		b.Fatal(err)
	}
	it := queue.Item{Symbol: "AAPL", Tick: benchTick()}

	// 后台消费者持续排空
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				ring.TryPop()
			}
		}
	}()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			ring.Push(it)
		}
	})
}

// BenchmarkTickDerived 微观结构派生字段的计算开销
func BenchmarkTickDerived(b *testing.B) {
	t := benchTick()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		t.ComputeDerived()
	}
}

// BenchmarkStrategyDecide 单策略决策延迟（热路径核心）
func BenchmarkStrategyDecide(b *testing.B) {
	tests := []struct {
		name string
		kind strategy.Kind
	}{
		{"Scalping", strategy.Scalping},
		{"MarketMaking", strategy.MarketMaking},
		{"Momentum", strategy.Momentum},
	}
	tick := benchTick()

	for _, tt := range tests {
		b.Run(tt.name, func(b *testing.B) {
			s := strategy.New(tt.kind)
			for i := 0; i < b.N; i++ {
				_, _ = s.Decide(tick)
			}
		})
	}
}

// BenchmarkClientID 客户端订单号生成（CAS争用）
func BenchmarkClientID(b *testing.B) {
	gen := strategy.NewClientIDGenerator()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = gen.Next(strategy.Buy)
		}
	})
}
