package gateway

// TimeInForce 订单有效期语义。
type TimeInForce string

const (
	TIFDay TimeInForce = "DAY"
	TIFIOC TimeInForce = "IOC"
	TIFFOK TimeInForce = "FOK"
)

// OrderRequest 一次下单请求；构造后不可变，一个请求对应一次 Post 调用。
// ClientID 是调用方生成的幂等键，每次尝试唯一。
type OrderRequest struct {
	Symbol      string      `json:"symbol"`
	Side        string      `json:"side"` // BUY / SELL
	Qty         uint64      `json:"qty"`
	LimitPx     *float64    `json:"limitPx,omitempty"`
	TimeInForce TimeInForce `json:"timeInForce"`
	ClientID    string      `json:"clientId"`
	Priority    uint8       `json:"priority"`
}

// Gateway 是下单通道的能力抽象：核心内仅有 Broker 与 Mock 两个实现，
// 其他券商适配器作为外部插件消费同一接口。
type Gateway interface {
	Post(req OrderRequest) error
	Replace(orderID string, newPrice float64) error
	Cancel(orderID string) error
}

// Observer 接收网关调用的延迟与慢调用事件；由 monitor 实现，
// 以句柄注入而非全局注册表，保证核心可独立测试。
type Observer interface {
	ObserveGatewayLatency(op string, seconds float64)
	IncSlowCall(op string)
}
