package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hft-engine-go/infrastructure/logger"
	"hft-engine-go/queue"
)

func writeReplayFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticks.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReplayParsesAndPushes(t *testing.T) {
	csv := "ts_ns,symbol,bid_px,bid_sz,ask_px,ask_sz,bid2_px,bid2_sz,ask2_px,ask2_sz,volume\n" +
		"1000,AAPL,100.00,1500,100.01,500,99.99,100,100.02,100,10000\n" +
		"2000,AAPL,100.01,1200,100.02,600,100.00,100,100.03,100,10100\n"
	ring, _ := queue.NewRing(16)
	r := &Replay{
		Path:   writeReplayFile(t, csv),
		Ring:   ring,
		Logger: logger.Nop(),
	}

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := ring.Len(); got != 2 {
		t.Fatalf("expected 2 buffered ticks, got %d", got)
	}

	it, ok := ring.TryPop()
	if !ok {
		t.Fatal("expected first tick")
	}
	if it.Symbol != "AAPL" {
		t.Errorf("symbol = %s", it.Symbol)
	}
	if it.Tick.TsNs != 1000 {
		t.Errorf("ts = %d, expected FIFO order", it.Tick.TsNs)
	}
	if it.Tick.BidPx != 100.00 || it.Tick.BidSz != 1500 {
		t.Errorf("bid = %.2f x %.0f", it.Tick.BidPx, it.Tick.BidSz)
	}
	if it.Tick.SpreadBpsV <= 0 {
		t.Error("derived spread should be computed on parse")
	}
}

func TestReplayPacing(t *testing.T) {
	// 两条tick相隔50ms，1倍速回放至少耗时接近50ms
	csv := "1000000000,AAPL,100.00,1000,100.01,1000,99.99,100,100.02,100,1\n" +
		"1050000000,AAPL,100.00,1000,100.01,1000,99.99,100,100.02,100,1\n"
	ring, _ := queue.NewRing(16)
	r := &Replay{
		Path:   writeReplayFile(t, csv),
		Speed:  1.0,
		Ring:   ring,
		Logger: logger.Nop(),
	}

	start := time.Now()
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("replay not paced: took %s", elapsed)
	}
}

func TestReplayCancellation(t *testing.T) {
	csv := "1000000000,AAPL,100.00,1000,100.01,1000,99.99,100,100.02,100,1\n" +
		"6000000000,AAPL,100.00,1000,100.01,1000,99.99,100,100.02,100,1\n"
	ring, _ := queue.NewRing(16)
	r := &Replay{
		Path:   writeReplayFile(t, csv),
		Speed:  1.0,
		Ring:   ring,
		Logger: logger.Nop(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	if err := r.Run(ctx); err == nil {
		t.Fatal("expected context error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation too slow: %s", elapsed)
	}
}

func TestReplayBadRecord(t *testing.T) {
	csv := "notanumber,AAPL,100.00,1000,100.01,1000,99.99,100,100.02,100,1\n"
	ring, _ := queue.NewRing(16)
	r := &Replay{
		Path:   writeReplayFile(t, csv),
		Ring:   ring,
		Logger: logger.Nop(),
	}
	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestReplayDropCounting(t *testing.T) {
	csv := "1000,AAPL,100.00,1000,100.01,1000,99.99,100,100.02,100,1\n" +
		"2000,AAPL,100.00,1000,100.01,1000,99.99,100,100.02,100,1\n" +
		"3000,AAPL,100.00,1000,100.01,1000,99.99,100,100.02,100,1\n"
	ring, _ := queue.NewRing(2)
	drops := &countingDrops{}
	r := &Replay{
		Path:   writeReplayFile(t, csv),
		Ring:   ring,
		Drops:  drops,
		Logger: logger.Nop(),
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if drops.n != 1 {
		t.Errorf("drops = %d, want 1", drops.n)
	}
}

type countingDrops struct{ n int }

func (c *countingDrops) IncQueueDrop() { c.n++ }
