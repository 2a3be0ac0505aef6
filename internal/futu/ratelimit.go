package futu

import (
	"context"
	"sync"
	"time"
)

// rateLimiter 是一个按秒补充令牌的令牌桶，约束对 OpenD 的请求频率。
// OpenD 对单连接有固定的频率限制，超限请求会被网关直接拒绝。
type rateLimiter struct {
	rate     float64 // 每秒补充的令牌数
	tokens   float64
	lastTime time.Time
	mu       sync.Mutex
}

func newRateLimiter(perSecond int) *rateLimiter {
	if perSecond <= 0 {
		perSecond = 10
	}
	return &rateLimiter{
		rate:     float64(perSecond),
		tokens:   1,
		lastTime: time.Now(),
	}
}

// wait 阻塞直到获得令牌或上下文取消。
func (rl *rateLimiter) wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(rl.lastTime).Seconds()
		rl.tokens += elapsed * rl.rate
		if rl.tokens > rl.rate {
			rl.tokens = rl.rate
		}
		rl.lastTime = now

		if rl.tokens >= 1 {
			rl.tokens -= 1
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}
