package gateway

import (
	"sync"
	"time"
)

// TokenBucketLimiter 是一个简单的令牌桶实现，用于订单速率控制。
// 引擎热路径只调用非阻塞的 TryAcquire：桶空视为一次风控拒绝，
// 绝不在热路径上 sleep。
type TokenBucketLimiter struct {
	rate   float64
	burst  int
	tokens float64
	last   time.Time
	mu     sync.Mutex
}

func NewTokenBucketLimiter(rate float64, burst int) *TokenBucketLimiter {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucketLimiter{
		rate:   rate,
		burst:  burst,
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// TryAcquire 取一个令牌；桶空时立即返回 false。
func (l *TokenBucketLimiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill(time.Now())
	if l.tokens < 1 {
		return false
	}
	l.tokens -= 1
	return true
}

// refill 按流逝时间补充令牌，调用方需持锁。
func (l *TokenBucketLimiter) refill(now time.Time) {
	elapsed := now.Sub(l.last).Seconds()
	l.last = now
	l.tokens += elapsed * l.rate
	if l.tokens > float64(l.burst) {
		l.tokens = float64(l.burst)
	}
}
