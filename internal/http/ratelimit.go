package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RateLimiter counts requests per client address in fixed Redis windows.
// A nil limiter or client lets everything through.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	log    logrus.FieldLogger
}

func NewRateLimiter(client *redis.Client, limit int, window time.Duration, log logrus.FieldLogger) *RateLimiter {
	return &RateLimiter{client: client, limit: int64(limit), window: window, log: log}
}

// Limit guards one route group; scope keeps the counters of separate groups
// apart.
func (rl *RateLimiter) Limit(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rl == nil || rl.client == nil || rl.limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := rateLimitKey(scope, r.RemoteAddr)

			current, err := rl.client.Incr(ctx, key).Result()
			if err != nil {
				// fail open
				rl.log.WithError(err).WithField("key", key).Warn("rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}
			if current == 1 {
				if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
					rl.log.WithError(err).WithField("key", key).Warn("rate limit expiry failed")
				}
			}
			if current > rl.limit {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))
				writeError(w, http.StatusTooManyRequests, fmt.Sprintf("rate limit exceeded, try again in %d seconds", int(rl.window.Seconds())))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(scope, remoteAddr string) string {
	return "rate_limit:" + scope + ":" + remoteAddr
}
