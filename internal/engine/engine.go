package engine

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"hft-engine-go/gateway"
	"hft-engine-go/infrastructure/logger"
	"hft-engine-go/monitor"
	"hft-engine-go/queue"
	"hft-engine-go/risk"
	"hft-engine-go/strategy"
)

// State 引擎状态
type State int32

const (
	// StateCreated 已创建未启动
	StateCreated State = iota
	// StateRunning 运行中
	StateRunning
	// StateStopped 已停止（终态，不可复启）
	StateStopped
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Config 引擎配置
type Config struct {
	// Core 绑定的CPU核；负数表示不绑核。
	Core int
}

// Components 引擎依赖组件，全部以句柄注入。
type Components struct {
	Queue       *queue.Ring
	Gateway     gateway.Gateway
	Limiter     *risk.Limiter
	Exposure    *risk.ExposureTracker
	Strategies  []strategy.Strategy
	RateLimiter *gateway.TokenBucketLimiter
	Monitor     *monitor.Monitor
	Logger      *logger.Logger
}

// Engine 核心调度器：单消费者线程排空行情队列，依次过风控、
// 评估策略、下单、记录指标。除网关调用外热路径不阻塞。
type Engine struct {
	cfg  Config
	comp Components

	clientIDs *strategy.ClientIDGenerator
	running   atomic.Bool
	state     atomic.Int32
	done      chan struct{}
}

// New 创建引擎。
func New(cfg Config, comp Components) (*Engine, error) {
	if err := validateComponents(comp); err != nil {
		return nil, fmt.Errorf("invalid components: %w", err)
	}
	e := &Engine{
		cfg:       cfg,
		comp:      comp,
		clientIDs: strategy.NewClientIDGenerator(),
		done:      make(chan struct{}),
	}
	// running 从创建起就为真，Stop 是唯一写false的一方。
	// 若 Run 启动后才置真，与并发 Stop 之间存在丢失停止信号的窗口。
	e.running.Store(true)
	return e, nil
}

// State 返回当前引擎状态。
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Done 在引擎主循环退出后关闭。
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Stop 协作式停止：翻转原子标志，主循环在下一次检查时退出，
// 进行中的网关调用不被打断。可从任意线程调用，幂等。
func (e *Engine) Stop() {
	e.running.Store(false)
	// 未启动就停止：直接进入终态
	e.state.CompareAndSwap(int32(StateCreated), int32(StateStopped))
}

// Run 阻塞调用线程直到 Stop。绑核失败只告警不中止。
func (e *Engine) Run() error {
	if !e.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		return fmt.Errorf("engine not startable (state: %s)", e.State())
	}
	defer func() {
		e.state.Store(int32(StateStopped))
		close(e.done)
	}()

	// 消费者线程固定在单个OS线程/CPU核上，避免ring buffer消费侧
	// 游标跨核迁移。
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if e.cfg.Core >= 0 {
		if err := pinToCore(e.cfg.Core); err != nil {
			e.comp.Logger.Warn("cpu pinning unavailable",
				zap.Int("core", e.cfg.Core),
				zap.Error(err))
		} else {
			e.comp.Logger.Info("engine thread pinned", zap.Int("core", e.cfg.Core))
		}
	}

	e.comp.Logger.Info("engine started",
		zap.Int("strategies", len(e.comp.Strategies)),
		zap.Int("queue_capacity", e.comp.Queue.Cap()))

	for e.running.Load() {
		it, ok := e.comp.Queue.TryPop()
		if !ok {
			// 空转时让出线程，换取与核上其他工作的公平性
			runtime.Gosched()
			continue
		}
		e.process(it)
	}

	e.comp.Logger.Info("engine stopped",
		zap.Uint64("ticks", e.comp.Monitor.TickCount()),
		zap.Uint64("orders", e.comp.Monitor.OrderCount()))
	return nil
}

// process 处理单条tick：风控→策略→下单→指标。
// 风控拒绝是预期控制流，不是错误；网关失败记录计数但不中止循环。
func (e *Engine) process(it queue.Item) {
	e.comp.Monitor.IncTick(it.Symbol)
	t := it.Tick

	if err := e.comp.Limiter.CheckSpread(t.SpreadBpsV); err != nil {
		e.comp.Monitor.IncRiskReject(rejectReason(err))
		e.observeTickLatency(t.TsNs)
		return
	}
	mid := t.Mid()
	if err := e.comp.Limiter.Allow(it.Symbol, mid, e.comp.Exposure.RealizedPnL()); err != nil {
		e.comp.Monitor.IncRiskReject(rejectReason(err))
		e.observeTickLatency(t.TsNs)
		return
	}

	for _, s := range e.comp.Strategies {
		intent, ok := s.Decide(t)
		if !ok {
			continue
		}
		e.submit(it.Symbol, s, intent)
	}
	e.observeTickLatency(t.TsNs)
}

// submit 构造请求并经网关下单；成功后更新盈亏代理与名义敞口。
func (e *Engine) submit(symbol string, s strategy.Strategy, intent strategy.Intent) {
	if e.comp.RateLimiter != nil && !e.comp.RateLimiter.TryAcquire() {
		e.comp.Monitor.IncRiskReject(rejectReason(risk.ErrOrderRateLimited))
		return
	}

	side := intent.Side.String()
	limitPx := intent.LimitPx
	req := gateway.OrderRequest{
		Symbol:      symbol,
		Side:        side,
		Qty:         intent.Qty,
		LimitPx:     &limitPx,
		TimeInForce: gateway.TIFIOC,
		ClientID:    e.clientIDs.Next(intent.Side),
		Priority:    0,
	}

	if err := e.comp.Gateway.Post(req); err != nil {
		e.comp.Monitor.IncOrder(side, symbol, "failed")
		e.comp.Logger.LogOrder("post_failed", req.ClientID, map[string]interface{}{
			"side":   side,
			"symbol": symbol,
			"error":  err.Error(),
		})
		return
	}

	e.comp.Monitor.IncOrder(side, symbol, "ok")
	notional := intent.LimitPx * float64(intent.Qty)
	e.comp.Exposure.AddNotional(notional)
	// fire-and-forget 的盈亏代理：按策略目标利润估计本笔贡献
	e.comp.Exposure.AddRealizedPnL(notional * s.Params.TargetProfitBps / 10_000)
}

// observeTickLatency 无论是否下单都记录tick到决策的延迟。
func (e *Engine) observeTickLatency(tsNs uint64) {
	now := uint64(time.Now().UnixNano())
	if now > tsNs {
		e.comp.Monitor.ObserveTickToOrder(float64(now-tsNs) / float64(time.Second))
	}
}

// rejectReason 将 sentinel 错误映射为指标label。
func rejectReason(err error) string {
	switch {
	case errors.Is(err, risk.ErrSpreadTooWide):
		return "spread"
	case errors.Is(err, risk.ErrPDTExceeded):
		return "pdt"
	case errors.Is(err, risk.ErrDailyLossCap):
		return "daily_loss"
	case errors.Is(err, risk.ErrNotionalExceeded):
		return "notional"
	case errors.Is(err, risk.ErrOrderRateLimited):
		return "rate"
	default:
		return "other"
	}
}

// validateComponents 验证组件
func validateComponents(comp Components) error {
	if comp.Queue == nil {
		return errors.New("queue is required")
	}
	if comp.Gateway == nil {
		return errors.New("gateway is required")
	}
	if comp.Limiter == nil {
		return errors.New("limiter is required")
	}
	if comp.Exposure == nil {
		return errors.New("exposure tracker is required")
	}
	if len(comp.Strategies) == 0 {
		return errors.New("at least one strategy is required")
	}
	if comp.Monitor == nil {
		return errors.New("monitor is required")
	}
	if comp.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}
