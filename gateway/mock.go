package gateway

import (
	"sync"
	"time"
)

// Mock 模拟网关：记录全部调用、模拟固定小延迟、从不失败。
// 用于确定性测试以及在没有真实券商权限时跑引擎（paper/dryRun）。
type Mock struct {
	// Latency 模拟的单次调用耗时；零值表示不 sleep。
	Latency  time.Duration
	Observer Observer

	mu       sync.Mutex
	posted   []OrderRequest
	replaced []string
	canceled []string
}

// NewMock 创建 Mock 网关。
func NewMock() *Mock {
	return &Mock{Latency: time.Millisecond}
}

// Post 记录请求并返回成功。
func (m *Mock) Post(req OrderRequest) error {
	m.simulate("post")
	m.mu.Lock()
	m.posted = append(m.posted, req)
	m.mu.Unlock()
	return nil
}

// Replace 记录订单号并返回成功。
func (m *Mock) Replace(orderID string, newPrice float64) error {
	m.simulate("replace")
	m.mu.Lock()
	m.replaced = append(m.replaced, orderID)
	m.mu.Unlock()
	return nil
}

// Cancel 记录订单号并返回成功。
func (m *Mock) Cancel(orderID string) error {
	m.simulate("cancel")
	m.mu.Lock()
	m.canceled = append(m.canceled, orderID)
	m.mu.Unlock()
	return nil
}

func (m *Mock) simulate(op string) {
	if m.Latency > 0 {
		time.Sleep(m.Latency)
	}
	if m.Observer != nil {
		m.Observer.ObserveGatewayLatency(op, m.Latency.Seconds())
	}
}

// Posted 返回已记录的下单请求副本。
func (m *Mock) Posted() []OrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OrderRequest, len(m.posted))
	copy(out, m.posted)
	return out
}

// PostCount 返回下单次数。
func (m *Mock) PostCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posted)
}

// Replaced 返回被改价的订单号。
func (m *Mock) Replaced() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.replaced))
	copy(out, m.replaced)
	return out
}

// Canceled 返回被撤销的订单号。
func (m *Mock) Canceled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.canceled))
	copy(out, m.canceled)
	return out
}
