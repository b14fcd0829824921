// Package monitor 收敛引擎的全部性能计数：Prometheus 注册表按句柄传入
// Engine 与 Gateway，不使用进程级全局注册表，保证核心可独立测试。
package monitor

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor Prometheus监控指标收集器 + 轻量速率计数。
type Monitor struct {
	registry *prometheus.Registry

	// tick/订单指标
	ticksTotal  *prometheus.CounterVec
	ordersTotal *prometheus.CounterVec

	// 队列与风控
	queueDrops  prometheus.Counter
	riskRejects *prometheus.CounterVec

	// 网关延迟
	gatewayLatency   *prometheus.HistogramVec
	gatewaySlowCalls *prometheus.CounterVec
	tickToOrder      prometheus.Histogram

	// 启动以来的轻量计数，派生 ticks/sec、orders/sec
	startNs    int64
	tickCount  atomic.Uint64
	orderCount atomic.Uint64
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "hft",
		Subsystem: "engine",
	}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Monitor{
		registry: reg,
		startNs:  time.Now().UnixNano(),

		ticksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ticks_total",
			Help:      "消费的tick总数",
		}, []string{"symbol"}),
		ordersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "orders_total",
			Help:      "订单提交总数（按方向/标的/结果）",
		}, []string{"side", "symbol", "status"}),
		queueDrops: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "queue_drops_total",
			Help:      "行情队列满导致的丢弃总数",
		}),
		riskRejects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "risk_rejects_total",
			Help:      "风控拒绝总数（按原因）",
		}, []string{"reason"}),
		gatewayLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "gateway_latency_seconds",
			Help:      "网关调用延迟分布（秒）",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"op"}),
		gatewaySlowCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "gateway_slow_calls_total",
			Help:      "超过50ms的网关调用总数",
		}, []string{"op"}),
		tickToOrder: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "tick_to_order_seconds",
			Help:      "tick到下单决策的延迟分布（秒）",
			Buckets:   []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1},
		}),
	}
	return m
}

// IncTick 记录一条被消费的tick。
func (m *Monitor) IncTick(symbol string) {
	m.tickCount.Add(1)
	m.ticksTotal.WithLabelValues(symbol).Inc()
}

// IncOrder 记录一次下单结果。status 取 ok / failed。
func (m *Monitor) IncOrder(side, symbol, status string) {
	m.orderCount.Add(1)
	m.ordersTotal.WithLabelValues(side, symbol, status).Inc()
}

// IncQueueDrop 记录一次队列满丢弃。
func (m *Monitor) IncQueueDrop() {
	m.queueDrops.Inc()
}

// IncRiskReject 记录一次风控拒绝。
func (m *Monitor) IncRiskReject(reason string) {
	m.riskRejects.WithLabelValues(reason).Inc()
}

// ObserveGatewayLatency 实现 gateway.Observer。
func (m *Monitor) ObserveGatewayLatency(op string, seconds float64) {
	m.gatewayLatency.WithLabelValues(op).Observe(seconds)
}

// IncSlowCall 实现 gateway.Observer。
func (m *Monitor) IncSlowCall(op string) {
	m.gatewaySlowCalls.WithLabelValues(op).Inc()
}

// ObserveTickToOrder 记录tick到决策的延迟（秒）。
func (m *Monitor) ObserveTickToOrder(seconds float64) {
	m.tickToOrder.Observe(seconds)
}

// TickCount 返回启动以来消费的tick数。
func (m *Monitor) TickCount() uint64 {
	return m.tickCount.Load()
}

// OrderCount 返回启动以来提交的订单数。
func (m *Monitor) OrderCount() uint64 {
	return m.orderCount.Load()
}

// TicksPerSec 返回启动以来的平均tick速率。
func (m *Monitor) TicksPerSec() float64 {
	return m.ratePerSec(m.tickCount.Load())
}

// OrdersPerSec 返回启动以来的平均下单速率。
func (m *Monitor) OrdersPerSec() float64 {
	return m.ratePerSec(m.orderCount.Load())
}

func (m *Monitor) ratePerSec(count uint64) float64 {
	elapsed := float64(time.Now().UnixNano()-m.startNs) / float64(time.Second)
	if elapsed <= 0 {
		return 0
	}
	return float64(count) / elapsed
}

// Registry 返回底层注册表（供测试注入）。
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 抓取端点。
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
