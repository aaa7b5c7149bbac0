package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/pkg/clientip"
)

const (
	// RateLimitWindow is the fixed counting window.
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the maximum number of requests allowed in the window
	RateLimitMaxRequests = 120
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked after exceeding the limit.
	BlockedIPDuration = 15 * time.Minute
)

// RateLimiter counts requests per client IP in Redis, so the limit holds
// across instances. Redis failures let requests through.
type RateLimiter struct {
	rdb    *redis.Client
	logger *zap.Logger
	limit  int
	window time.Duration
	block  time.Duration
}

func NewRateLimiter(rdb *redis.Client, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		logger: logger,
		limit:  RateLimitMaxRequests,
		window: RateLimitWindow,
		block:  BlockedIPDuration,
	}
}

// WithLimit overrides the per-window request budget.
func (l *RateLimiter) WithLimit(limit int, window time.Duration) *RateLimiter {
	l.limit = limit
	l.window = window
	return l
}

// Middleware returns the limiting handler wrapper.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientip.RealClientIP(r)
		ctx := r.Context()

		blocked, err := l.IsBlocked(ctx, ip)
		if err == nil && blocked {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.block.Seconds())))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Your IP has been temporarily blocked due to excessive requests. Please try again later.")
			return
		}

		count, err := l.hit(ctx, ip)
		if err != nil {
			l.logger.Warn("rate limit check failed", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		if count > int64(l.limit) {
			if err := l.rdb.Set(ctx, BlockedIPKeyPrefix+ip, "1", l.block).Err(); err != nil {
				l.logger.Warn("ip block not stored", zap.String("ip", ip), zap.Error(err))
			} else {
				l.logger.Info("ip blocked", zap.String("ip", ip), zap.Int64("requests", count))
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(l.limit)-count, 10))
		next.ServeHTTP(w, r)
	})
}

// hit increments the window counter, starting the window on first use.
func (l *RateLimiter) hit(ctx context.Context, ip string) (int64, error) {
	key := RateLimitKeyPrefix + ip
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// Unblock removes an IP from the blocked list.
func (l *RateLimiter) Unblock(ctx context.Context, ip string) error {
	return l.rdb.Del(ctx, BlockedIPKeyPrefix+ip).Err()
}

// IsBlocked checks if an IP is currently blocked
func (l *RateLimiter) IsBlocked(ctx context.Context, ip string) (bool, error) {
	count, err := l.rdb.Exists(ctx, BlockedIPKeyPrefix+ip).Result()
	return count > 0, err
}
