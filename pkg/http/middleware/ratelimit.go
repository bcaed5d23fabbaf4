// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package middleware

import (
	"sync"
	"time"

	"github.com/go-arcade/gatekeeper/pkg/http"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const bucketIdleTTL = 5 * time.Minute

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter keeps one token bucket per client ip.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*ipBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(cfg http.RateLimit) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*ipBucket),
		limit:   rate.Limit(cfg.PerSecond),
		burst:   cfg.Burst,
		now:     time.Now,
	}
}

// Allow takes a token from the bucket of ip. Idle buckets are swept at most
// once per TTL while holding the lock.
func (l *RateLimiter) Allow(ip string) bool {
	if ip == "" {
		ip = "unknown"
	}
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) > bucketIdleTTL {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > bucketIdleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}
	b, ok := l.buckets[ip]
	if !ok {
		b = &ipBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = now
	l.mu.Unlock()

	return b.lim.AllowN(now, 1)
}

// RateLimitMiddleware rejects clients that exceed cfg with 429. A non
// positive rate disables it.
func RateLimitMiddleware(cfg http.RateLimit) fiber.Handler {
	if cfg.PerSecond <= 0 {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	limiter := NewRateLimiter(cfg)
	return func(c *fiber.Ctx) error {
		if !limiter.Allow(ClientIP(c)) {
			return http.WithRepErr(c, fiber.StatusTooManyRequests, http.TooManyRequests)
		}
		return c.Next()
	}
}
