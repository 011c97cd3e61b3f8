package middleware

import (
	"sync"
	"sync/atomic"
	"time"

	"room-broker/config"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

type RateLimiter struct {
	config config.RateLimitConfig
	now    func() time.Time

	// Global rate limiter
	globalLimiter *rate.Limiter

	// Per client IP rate limiters, dropped after ClientTTL without requests
	clientLimiters sync.Map
	lastSweep      atomic.Int64
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:        cfg,
		now:           time.Now,
		globalLimiter: newLimiter(cfg.Global),
	}
	rl.lastSweep.Store(rl.now().UnixNano())
	return rl
}

func newLimiter(limit config.LimitConfig) *rate.Limiter {
	if limit.RequestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(
		rate.Every(time.Minute/time.Duration(limit.RequestsPerMinute)),
		limit.Burst,
	)
}

func (rl *RateLimiter) getOrCreateClientLimiter(ip string) *rate.Limiter {
	if rl.config.PerClient.RequestsPerMinute <= 0 {
		return nil
	}

	now := rl.now()
	rl.sweep(now)

	entry, ok := rl.clientLimiters.Load(ip)
	if !ok {
		entry, _ = rl.clientLimiters.LoadOrStore(ip, &clientLimiter{limiter: newLimiter(rl.config.PerClient)})
	}
	client := entry.(*clientLimiter)
	client.lastSeen.Store(now.UnixNano())
	return client.limiter
}

// sweep drops idle client limiters at most once per ClientTTL. A client that
// comes back after being dropped starts with a full burst.
func (rl *RateLimiter) sweep(now time.Time) {
	ttl := rl.config.ClientTTL
	if ttl <= 0 {
		return
	}
	last := rl.lastSweep.Load()
	if now.UnixNano()-last < int64(ttl) || !rl.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	cutoff := now.Add(-ttl).UnixNano()
	rl.clientLimiters.Range(func(key, value any) bool {
		if value.(*clientLimiter).lastSeen.Load() < cutoff {
			rl.clientLimiters.Delete(key)
		}
		return true
	})
}

func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rl.globalLimiter != nil && !rl.globalLimiter.Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Global rate limit exceeded",
			})
		}

		if clientLimiter := rl.getOrCreateClientLimiter(c.IP()); clientLimiter != nil {
			if !clientLimiter.Allow() {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Client rate limit exceeded",
				})
			}
		}

		return c.Next()
	}
}
