package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"hft-engine-go/infrastructure/logger"
	"hft-engine-go/queue"
)

func TestParseDepth(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{
			name: "two levels",
			raw:  `{"ts_ns":1000,"symbol":"AAPL","bids":[[100.0,1500],[99.99,100]],"asks":[[100.01,500],[100.02,100]],"volume":10000}`,
		},
		{
			name: "single level",
			raw:  `{"ts_ns":1000,"symbol":"AAPL","bids":[[100.0,1500]],"asks":[[100.01,500]]}`,
		},
		{name: "empty bids", raw: `{"symbol":"AAPL","bids":[],"asks":[[100.01,500]]}`, wantErr: true},
		{name: "missing symbol", raw: `{"bids":[[100.0,1]],"asks":[[100.01,1]]}`, wantErr: true},
		{name: "garbage", raw: `not json`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := parseDepth([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if it.Symbol != "AAPL" || it.Tick.BidPx != 100.0 || it.Tick.AskSz != 500 {
				t.Errorf("bad parse: %+v", it)
			}
			if it.Tick.SpreadBpsV <= 0 {
				t.Error("derived fields should be computed")
			}
		})
	}
}

func TestParseDepthDefaultsTimestamp(t *testing.T) {
	it, err := parseDepth([]byte(`{"symbol":"AAPL","bids":[[100.0,1]],"asks":[[100.01,1]]}`))
	if err != nil {
		t.Fatal(err)
	}
	if it.Tick.TsNs == 0 {
		t.Error("missing ts_ns should default to local clock")
	}
}

func TestWSConsumesStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		msgs := []string{
			`{"ts_ns":1,"symbol":"AAPL","bids":[[100.0,1500]],"asks":[[100.01,500]]}`,
			`broken`,
			`{"ts_ns":2,"symbol":"AAPL","bids":[[100.01,1200]],"asks":[[100.02,600]]}`,
		}
		for _, m := range msgs {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		// 保持连接直到客户端取消
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ring, _ := queue.NewRing(16)
	ws := NewWS("ws"+strings.TrimPrefix(srv.URL, "http"), ring, nil, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = ws.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for ring.Len() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ws feed did not stop on cancel")
	}

	// 坏消息被跳过，两条有效tick按序入队
	if got := ring.Len(); got != 2 {
		t.Fatalf("buffered = %d, want 2", got)
	}
	first, _ := ring.TryPop()
	if first.Tick.TsNs != 1 {
		t.Errorf("first ts = %d, want FIFO", first.Tick.TsNs)
	}
}

func TestWSDialFailureExhaustsRetries(t *testing.T) {
	ring, _ := queue.NewRing(16)
	ws := NewWS("ws://127.0.0.1:1", ring, nil, logger.Nop())
	ws.MaxRetries = 1
	ws.RetryBackoff = time.Millisecond

	if err := ws.Run(context.Background()); err == nil {
		t.Fatal("expected dial error after retries")
	}
}
