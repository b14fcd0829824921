package risk

import "errors"

var (
	ErrSpreadTooWide    = errors.New("spread too wide")
	ErrPDTExceeded      = errors.New("pdt exposure exceeded")
	ErrDailyLossCap     = errors.New("daily loss cap exceeded")
	ErrNotionalExceeded = errors.New("notional limit exceeded")
	ErrOrderRateLimited = errors.New("order rate limit exhausted")
)
