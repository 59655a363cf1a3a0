package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type keyedLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet hands out one token bucket per key. Stale entries are cleaned
// up every 10 minutes to prevent unbounded memory growth.
type limiterSet struct {
	mu       sync.Mutex
	limiters map[string]*keyedLimiter
	rps      rate.Limit
	burst    int
}

func newLimiterSet(ctx context.Context, requestsPerSecond float64, burst int) *limiterSet {
	ls := &limiterSet{
		limiters: make(map[string]*keyedLimiter),
		rps:      rate.Limit(requestsPerSecond),
		burst:    burst,
	}

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ls.mu.Lock()
				cutoff := time.Now().Add(-30 * time.Minute)
				for k, kl := range ls.limiters {
					if kl.lastAccess.Before(cutoff) {
						delete(ls.limiters, k)
					}
				}
				ls.mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	return ls
}

func (ls *limiterSet) allow(key string) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	kl, ok := ls.limiters[key]
	if !ok {
		kl = &keyedLimiter{limiter: rate.NewLimiter(ls.rps, ls.burst)}
		ls.limiters[key] = kl
	}
	kl.lastAccess = time.Now()
	return kl.limiter.Allow()
}

func rateLimit(ctx context.Context, requestsPerSecond float64, burst int, keyOf func(*http.Request) (string, bool)) func(http.Handler) http.Handler {
	ls := newLimiterSet(ctx, requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := keyOf(r)
			if ok && !ls.allow(key) {
				http.Error(w, `{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP applies per-IP rate limiting for unauthenticated entry points
// such as the WebSocket handshake. Uses chi's RealIP middleware value via
// r.RemoteAddr.
func RateLimitByIP(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	return rateLimit(ctx, requestsPerSecond, burst, func(r *http.Request) (string, bool) {
		return r.RemoteAddr, true
	})
}

// RateLimitByUser applies per-user rate limiting. Requests without an
// authenticated user pass through.
func RateLimitByUser(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	return rateLimit(ctx, requestsPerSecond, burst, func(r *http.Request) (string, bool) {
		uid, ok := UserIDFromContext(r.Context())
		return strconv.FormatInt(uid, 10), ok
	})
}
