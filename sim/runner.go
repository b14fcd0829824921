// Package sim 提供离线回测：用真实的引擎装配（队列、风控、策略、
// mock网关、指标）消费一个有限行情源，输出汇总结果。
package sim

import (
	"context"
	"fmt"
	"time"

	"hft-engine-go/feed"
	"hft-engine-go/gateway"
	"hft-engine-go/infrastructure/logger"
	"hft-engine-go/internal/engine"
	"hft-engine-go/monitor"
	"hft-engine-go/queue"
	"hft-engine-go/risk"
	"hft-engine-go/strategy"
)

// Result 回测汇总。
type Result struct {
	Ticks         uint64
	Orders        uint64
	Posted        int // mock网关实际收到的下单数
	RealizedPnL   float64
	GrossNotional float64
	TicksPerSec   float64
	Elapsed       time.Duration
}

// Runner 回测装配。行情源必须是有限的（回放文件或定长合成流）。
type Runner struct {
	Strategies    []strategy.Strategy
	Limits        risk.Limits
	QueueCapacity int
	Logger        *logger.Logger
}

// MakeFeed 给定ring与丢弃计数器构造行情源；由Runner负责装配时序。
type MakeFeed func(ring *queue.Ring, drops feed.DropCounter) feed.Producer

// Run 执行回测：启动引擎、跑完行情源、排空队列、停止引擎。
func (r *Runner) Run(ctx context.Context, makeFeed MakeFeed) (Result, error) {
	ring, err := queue.NewRing(r.QueueCapacity)
	if err != nil {
		return Result{}, fmt.Errorf("create ring: %w", err)
	}

	mon := monitor.New(monitor.DefaultConfig())
	mock := gateway.NewMock()
	mock.Latency = 0
	mock.Observer = mon
	exposure := risk.NewExposureTracker()

	lg := r.Logger
	if lg == nil {
		lg = logger.Nop()
	}

	var rateLimiter *gateway.TokenBucketLimiter
	if r.Limits.MaxOrdersPerSecond > 0 {
		burst := int(r.Limits.MaxOrdersPerSecond)
		if burst < 1 {
			burst = 1
		}
		rateLimiter = gateway.NewTokenBucketLimiter(r.Limits.MaxOrdersPerSecond, burst)
	}

	eng, err := engine.New(engine.Config{Core: -1}, engine.Components{
		Queue:       ring,
		Gateway:     mock,
		Limiter:     risk.NewLimiter(r.Limits),
		Exposure:    exposure,
		Strategies:  r.Strategies,
		RateLimiter: rateLimiter,
		Monitor:     mon,
		Logger:      lg,
	})
	if err != nil {
		return Result{}, fmt.Errorf("create engine: %w", err)
	}

	start := time.Now()
	engineErr := make(chan error, 1)
	go func() { engineErr <- eng.Run() }()

	feedErr := makeFeed(ring, mon).Run(ctx)

	// 行情源结束后排空剩余tick再停
	deadline := time.Now().Add(5 * time.Second)
	for ring.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	eng.Stop()
	<-eng.Done()
	if err := <-engineErr; err != nil {
		return Result{}, fmt.Errorf("engine: %w", err)
	}
	if feedErr != nil && ctx.Err() == nil {
		return Result{}, fmt.Errorf("feed: %w", feedErr)
	}

	return Result{
		Ticks:         mon.TickCount(),
		Orders:        mon.OrderCount(),
		Posted:        mock.PostCount(),
		RealizedPnL:   exposure.RealizedPnL(),
		GrossNotional: exposure.GrossNotional(),
		TicksPerSec:   mon.TicksPerSec(),
		Elapsed:       time.Since(start),
	}, nil
}
