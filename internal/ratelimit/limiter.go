package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nordveil/site-api/internal/config"
	"github.com/nordveil/site-api/internal/metrics"
)

// Decision is the outcome of one rate-limit check. RetryAfter is set only
// when the request is denied.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter counts requests per client IP in a fixed window kept in redis.
// Counter keys expire on their own once the window passes.
type Limiter struct {
	rdb    *redis.Client
	name   string
	max    int
	window time.Duration
	log    *zap.Logger
	m      *metrics.Metrics
}

func New(
	rdb *redis.Client,
	name string,
	limit config.Limit,
	log *zap.Logger,
	m *metrics.Metrics,
) *Limiter {
	return &Limiter{
		rdb:    rdb,
		name:   name,
		max:    limit.Max,
		window: limit.Window,
		log:    log.With(zap.String("component", "Limiter"), zap.String("limiter", name)),
		m:      m,
	}
}

// Allow records one request for ip and reports whether it fits the quota.
func (l *Limiter) Allow(ctx context.Context, ip string) (Decision, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", l.name, ip)

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, err
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return Decision{}, err
		}
	}

	if count <= int64(l.max) {
		return Decision{Allowed: true}, nil
	}

	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		ttl = l.window
	}

	l.m.RateLimitDenied.WithLabelValues(l.name).Inc()
	return Decision{Allowed: false, RetryAfter: ttl}, nil
}

// Middleware rejects over-quota requests with 429 and a Retry-After header.
// If the counter store is unreachable the request is let through: losing the
// quota beats taking the endpoint offline.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			l.log.Warn("rate limit store unreachable, failing open", zap.Error(err))
			c.Next()
			return
		}
		if !decision.Allowed {
			secs := int(decision.RetryAfter / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
