package market

// Mid returns the arithmetic mid price of the best bid/ask.
func Mid(bid, ask float64) float64 {
	return (bid + ask) / 2
}

// SpreadBps returns the quoted spread in basis points relative to mid.
// A zero mid (empty or crossed-to-zero book) yields zero rather than NaN.
func SpreadBps(bid, ask float64) float64 {
	mid := Mid(bid, ask)
	if mid == 0 {
		return 0
	}
	return 10_000 * (ask - bid) / mid
}

// Microprice returns the size-weighted fair price estimate.
// Each side's price is weighted by the opposite side's resting size:
// a large resting ask pulls the estimate toward the bid and vice versa,
// reflecting where the next fill is likely to land. With an empty book
// it degrades to the plain mid.
func Microprice(bid, bidSz, ask, askSz float64) float64 {
	total := bidSz + askSz
	if total == 0 {
		return Mid(bid, ask)
	}
	return (ask*bidSz + bid*askSz) / total
}

// CalculateImbalance calculates the imbalance between bid and ask volumes.
// Imbalance = (BidVol - AskVol) / (BidVol + AskVol), range [-1, 1].
// The denominator floors at 1 so an empty book reads as balanced.
func CalculateImbalance(bidSz, askSz float64) float64 {
	total := bidSz + askSz
	if total < 1 {
		total = 1
	}
	return (bidSz - askSz) / total
}
