package market

// Tick is one normalized top-of-book snapshot (best two levels) plus the
// microstructure signals derived from it. It is a fixed-size value type and
// is always copied by value: no allocation, no shared ownership.
type Tick struct {
	TsNs   uint64
	BidPx  float64
	BidSz  float64
	AskPx  float64
	AskSz  float64
	Bid2Px float64
	Bid2Sz float64
	Ask2Px float64
	Ask2Sz float64
	Volume uint64

	// Derived fields, computed once at ingestion.
	SpreadBpsV float64
	MicroPx    float64
	Imbalance  float64
}

// NewTick builds a tick and computes the derived signals once.
func NewTick(tsNs uint64, bidPx, bidSz, askPx, askSz, bid2Px, bid2Sz, ask2Px, ask2Sz float64, volume uint64) Tick {
	t := Tick{
		TsNs:   tsNs,
		BidPx:  bidPx,
		BidSz:  bidSz,
		AskPx:  askPx,
		AskSz:  askSz,
		Bid2Px: bid2Px,
		Bid2Sz: bid2Sz,
		Ask2Px: ask2Px,
		Ask2Sz: ask2Sz,
		Volume: volume,
	}
	t.ComputeDerived()
	return t
}

// ComputeDerived recomputes the spread/microprice/imbalance fields from the
// raw bid/ask fields.
func (t *Tick) ComputeDerived() {
	t.SpreadBpsV = SpreadBps(t.BidPx, t.AskPx)
	t.MicroPx = Microprice(t.BidPx, t.BidSz, t.AskPx, t.AskSz)
	t.Imbalance = CalculateImbalance(t.BidSz, t.AskSz)
}

// Mid returns the mid price of the best level.
func (t Tick) Mid() float64 {
	return Mid(t.BidPx, t.AskPx)
}

// WellFormed reports whether the book is uncrossed and sizes are sane.
// Producers are expected to drop malformed snapshots before enqueueing.
func (t Tick) WellFormed() bool {
	if t.BidSz < 0 || t.AskSz < 0 || t.Bid2Sz < 0 || t.Ask2Sz < 0 {
		return false
	}
	return t.BidPx <= t.AskPx
}
