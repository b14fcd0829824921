package feed

import (
	"context"
	"testing"
	"time"

	"hft-engine-go/infrastructure/logger"
	"hft-engine-go/queue"
)

func TestSyntheticBurstWellFormed(t *testing.T) {
	ring, _ := queue.NewRing(1024)
	s := &Synthetic{
		Symbol:     "AAPL",
		StartPrice: 100.0,
		Seed:       42,
		Ring:       ring,
		Logger:     logger.Nop(),
	}
	s.Burst(500)

	if got := ring.Len(); got != 500 {
		t.Fatalf("buffered = %d, want 500", got)
	}
	for {
		it, ok := ring.TryPop()
		if !ok {
			break
		}
		if it.Symbol != "AAPL" {
			t.Fatalf("symbol = %s", it.Symbol)
		}
		if !it.Tick.WellFormed() {
			t.Fatalf("malformed tick: bid %.4f ask %.4f", it.Tick.BidPx, it.Tick.AskPx)
		}
		if it.Tick.Imbalance < -1 || it.Tick.Imbalance > 1 {
			t.Fatalf("imbalance out of range: %f", it.Tick.Imbalance)
		}
	}
}

func TestSyntheticDeterministicForSeed(t *testing.T) {
	run := func() []float64 {
		ring, _ := queue.NewRing(64)
		s := &Synthetic{Symbol: "AAPL", StartPrice: 100.0, Seed: 7, Ring: ring}
		s.Burst(10)
		var mids []float64
		for {
			it, ok := ring.TryPop()
			if !ok {
				break
			}
			mids = append(mids, it.Tick.Mid())
		}
		return mids
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("tick %d: %f != %f, same seed should reproduce", i, a[i], b[i])
		}
	}
}

func TestSyntheticRunRespectsRate(t *testing.T) {
	ring, _ := queue.NewRing(1024)
	s := &Synthetic{
		Symbol:      "AAPL",
		Duration:    100 * time.Millisecond,
		TicksPerSec: 200,
		StartPrice:  100.0,
		Seed:        1,
		Ring:        ring,
		Logger:      logger.Nop(),
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	// 200/s 跑 100ms，约20条；调度抖动留宽容度
	if got := ring.Len(); got < 10 || got > 40 {
		t.Errorf("tick count = %d, want ~20", got)
	}
}

func TestSyntheticCancellation(t *testing.T) {
	ring, _ := queue.NewRing(64)
	s := &Synthetic{
		Symbol:      "AAPL",
		Duration:    time.Hour,
		TicksPerSec: 10,
		StartPrice:  100.0,
		Ring:        ring,
		Logger:      logger.Nop(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
