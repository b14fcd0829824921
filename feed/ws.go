package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hft-engine-go/infrastructure/logger"
	"hft-engine-go/market"
	"hft-engine-go/queue"
)

const (
	wsReadTimeout = 30 * time.Second
	// maxBackoff 重连退避上限。行情路径允许重试，下单路径不允许。
	maxBackoff = 30 * time.Second
)

// depthMessage 场所中立的盘口消息：bids/asks 为 [price, size] 数组，
// 按优先级排序，至少一档。
type depthMessage struct {
	TsNs   uint64       `json:"ts_ns"`
	Symbol string       `json:"symbol"`
	Bids   [][2]float64 `json:"bids"`
	Asks   [][2]float64 `json:"asks"`
	Volume uint64       `json:"volume"`
}

// WS 消费真实盘口推送流。断线自动重连（线性退避、有上限），
// 连续拨号失败超过 MaxRetries 次才返回错误。
type WS struct {
	Endpoint     string
	Ring         *queue.Ring
	Drops        DropCounter
	Logger       *logger.Logger
	Dialer       *websocket.Dialer
	MaxRetries   int
	RetryBackoff time.Duration
}

// NewWS 按默认重连参数构造。
func NewWS(endpoint string, ring *queue.Ring, drops DropCounter, log *logger.Logger) *WS {
	return &WS{
		Endpoint:     endpoint,
		Ring:         ring,
		Drops:        drops,
		Logger:       log,
		Dialer:       websocket.DefaultDialer,
		MaxRetries:   5,
		RetryBackoff: 3 * time.Second,
	}
}

// Run 连接并持续读取，直到 ctx 取消。
func (w *WS) Run(ctx context.Context) error {
	if w.Dialer == nil {
		w.Dialer = websocket.DefaultDialer
	}

	retries := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, _, err := w.Dialer.DialContext(ctx, w.Endpoint, nil)
		if err != nil {
			if retries >= w.MaxRetries {
				return fmt.Errorf("ws dial failed after %d retries: %w", w.MaxRetries, err)
			}
			retries++
			backoff := time.Duration(retries) * w.RetryBackoff
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			w.Logger.Warn("ws dial failed",
				zap.Int("attempt", retries),
				zap.Int("max", w.MaxRetries),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}

		w.Logger.Info("ws connected", zap.String("endpoint", w.Endpoint))
		retries = 0

		w.readLoop(ctx, conn)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			w.Logger.Warn("ws disconnected, reconnecting", zap.String("endpoint", w.Endpoint))
		}
	}
}

// readLoop 读取消息直到出错或 ctx 取消；每条消息刷新读超时。
func (w *WS) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	// ctx 取消时关闭连接打断阻塞的 ReadMessage
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				w.Logger.Warn("ws read failed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		it, err := parseDepth(msg)
		if err != nil {
			// 坏消息跳过，不断连
			w.Logger.Warn("ws message discarded", zap.Error(err))
			continue
		}
		push(w.Ring, w.Drops, it)
	}
}

// parseDepth 解析盘口消息为 queue.Item。缺少任意一侧报价视为坏消息。
func parseDepth(raw []byte) (queue.Item, error) {
	var m depthMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return queue.Item{}, fmt.Errorf("unmarshal depth: %w", err)
	}
	if m.Symbol == "" {
		return queue.Item{}, fmt.Errorf("depth message without symbol")
	}
	if len(m.Bids) == 0 || len(m.Asks) == 0 {
		return queue.Item{}, fmt.Errorf("depth message with empty book: %s", m.Symbol)
	}

	var bid2Px, bid2Sz, ask2Px, ask2Sz float64
	if len(m.Bids) > 1 {
		bid2Px, bid2Sz = m.Bids[1][0], m.Bids[1][1]
	}
	if len(m.Asks) > 1 {
		ask2Px, ask2Sz = m.Asks[1][0], m.Asks[1][1]
	}

	ts := m.TsNs
	if ts == 0 {
		ts = uint64(time.Now().UnixNano())
	}

	return queue.Item{
		Symbol: m.Symbol,
		Tick: market.NewTick(ts,
			m.Bids[0][0], m.Bids[0][1], m.Asks[0][0], m.Asks[0][1],
			bid2Px, bid2Sz, ask2Px, ask2Sz,
			m.Volume),
	}, nil
}
