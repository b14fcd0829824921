package risk

import (
	"errors"
	"testing"
)

func TestLimiterPDTBoundary(t *testing.T) {
	l := NewLimiter(Limits{
		MaxNotional:  1_000_000,
		DailyLossCap: 1_000_000,
		PDTEnabled:   true,
	})

	if err := l.Allow("AAPL", 100, 25_000.0); err != nil {
		t.Fatalf("exact pdt threshold must pass: %v", err)
	}
	err := l.Allow("AAPL", 100, 25_000.01)
	if !errors.Is(err, ErrPDTExceeded) {
		t.Fatalf("expected ErrPDTExceeded, got %v", err)
	}

	// pdt disabled: same exposure passes
	open := NewLimiter(Limits{MaxNotional: 1_000_000, DailyLossCap: 1_000_000})
	if err := open.Allow("AAPL", 100, 25_000.01); err != nil {
		t.Fatalf("pdt disabled should pass: %v", err)
	}
}

func TestLimiterDailyLossCap(t *testing.T) {
	l := NewLimiter(Limits{MaxNotional: 1_000_000, DailyLossCap: 500})
	if err := l.Allow("AAPL", 100, 500); err != nil {
		t.Fatalf("at cap must pass: %v", err)
	}
	if err := l.Allow("AAPL", 100, 500.01); !errors.Is(err, ErrDailyLossCap) {
		t.Fatalf("expected ErrDailyLossCap, got %v", err)
	}
}

func TestLimiterNotionalBoundary(t *testing.T) {
	l := NewLimiter(Limits{MaxNotional: 100_000, DailyLossCap: 1_000_000})

	// mid*100 == 100_000 is allowed
	if err := l.Allow("AAPL", 1000.00, 0); err != nil {
		t.Fatalf("exact notional must pass: %v", err)
	}
	if err := l.Allow("AAPL", 1000.0001, 0); !errors.Is(err, ErrNotionalExceeded) {
		t.Fatalf("expected ErrNotionalExceeded, got %v", err)
	}
}

func TestCheckSpread(t *testing.T) {
	l := NewLimiter(Limits{MaxSpreadBps: 5})
	if err := l.CheckSpread(5); err != nil {
		t.Fatalf("at limit must pass: %v", err)
	}
	if err := l.CheckSpread(5.1); !errors.Is(err, ErrSpreadTooWide) {
		t.Fatalf("expected ErrSpreadTooWide, got %v", err)
	}
}
