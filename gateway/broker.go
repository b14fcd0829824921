package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// RequestTimeout 网关同步调用的硬上限；下单路径不重试——
	// 重试可能造成重复提交，由上层用新的 ClientID 重新下单。
	RequestTimeout = 100 * time.Millisecond

	// SlowCallThreshold 超过该延迟记一次慢调用告警。
	SlowCallThreshold = 50 * time.Millisecond
)

// Broker 将 OrderRequest 映射为券商 REST 接口的同步调用。
// HTTPClient 可注入 httptest；默认不发起真实网络调用。
type Broker struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	HTTPClient *http.Client
	Logger     *zap.Logger
	Observer   Observer
}

// NewDefaultHTTPClient 返回带 100ms 超时的 http.Client。
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: RequestTimeout}
}

type brokerError struct {
	Reason string `json:"reason"`
}

// Post 提交一笔新订单。错误一律上浮：网络失败、非 2xx、券商拒绝原因
// 都包含在返回的 error 中，绝不静默吞掉，也绝不在本层重试。
func (b *Broker) Post(req OrderRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	return b.call("post", http.MethodPost, "/v1/orders", body)
}

// Replace 修改已挂订单的价格。
func (b *Broker) Replace(orderID string, newPrice float64) error {
	body, err := json.Marshal(map[string]float64{"price": newPrice})
	if err != nil {
		return fmt.Errorf("encode replace: %w", err)
	}
	return b.call("replace", http.MethodPut, "/v1/orders/"+orderID, body)
}

// Cancel 撤销已挂订单。
func (b *Broker) Cancel(orderID string) error {
	return b.call("cancel", http.MethodDelete, "/v1/orders/"+orderID, nil)
}

func (b *Broker) call(op, method, path string, body []byte) error {
	if b == nil || b.HTTPClient == nil {
		return fmt.Errorf("http client not set")
	}
	req, err := http.NewRequest(method, b.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", b.APIKey)
	req.Header.Set("X-API-SECRET", b.APISecret)

	start := time.Now()
	resp, err := b.HTTPClient.Do(req)
	elapsed := time.Since(start)
	b.observe(op, elapsed)
	if err != nil {
		return fmt.Errorf("%s call: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		reason := readReason(resp.Body)
		if reason == "" {
			return fmt.Errorf("%s status %d", op, resp.StatusCode)
		}
		return fmt.Errorf("%s status %d: %s", op, resp.StatusCode, reason)
	}
	return nil
}

func (b *Broker) observe(op string, elapsed time.Duration) {
	if b.Observer != nil {
		b.Observer.ObserveGatewayLatency(op, elapsed.Seconds())
	}
	if elapsed > SlowCallThreshold {
		if b.Observer != nil {
			b.Observer.IncSlowCall(op)
		}
		if b.Logger != nil {
			b.Logger.Warn("slow gateway call",
				zap.String("op", op),
				zap.Duration("latency", elapsed))
		}
	}
}

// readReason 提取券商返回的拒绝原因，读不出则返回空串。
func readReason(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var be brokerError
	if json.Unmarshal(raw, &be) == nil && be.Reason != "" {
		return be.Reason
	}
	return string(bytes.TrimSpace(raw))
}
