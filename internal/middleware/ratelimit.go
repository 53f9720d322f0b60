package middleware

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/syllabus-portal-api/internal/service"
	appErrors "github.com/noah-isme/syllabus-portal-api/pkg/errors"
	"github.com/noah-isme/syllabus-portal-api/pkg/response"
)

// WindowCounter is a shared fixed-window counter, usually Redis.
type WindowCounter interface {
	Enabled() bool
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimiter caps requests per client IP in fixed windows. Counts live in
// the shared counter when it is available and in process memory otherwise.
type RateLimiter struct {
	name    string
	limit   int
	window  time.Duration
	shared  WindowCounter
	metrics *service.MetricsService
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	count   int64
	resetAt time.Time
}

const pruneThreshold = 1024

// NewRateLimiter creates a limiter allowing limit requests per window. A
// non-positive limit disables limiting.
func NewRateLimiter(name string, limit int, window time.Duration, shared WindowCounter, metrics *service.MetricsService, logger *zap.Logger) *RateLimiter {
	if window <= 0 {
		window = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		name:     name,
		limit:    limit,
		window:   window,
		shared:   shared,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// Middleware returns a Gin middleware that rate-limits requests by IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}

		count, retryAfter := rl.hit(c.Request.Context(), c.ClientIP())
		remaining := int64(rl.limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(rl.limit) {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			rl.metrics.RecordRateLimited(rl.name)
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) hit(ctx context.Context, ip string) (int64, time.Duration) {
	if rl.shared != nil && rl.shared.Enabled() {
		count, ttl, err := rl.shared.IncrWindow(ctx, "ratelimit:"+rl.name+":"+ip, rl.window)
		if err == nil {
			return count, ttl
		}
		rl.logger.Warn("rate limit counter unavailable, using local window", zap.String("limiter", rl.name), zap.Error(err))
	}
	return rl.hitLocal(ip)
}

func (rl *RateLimiter) hitLocal(ip string) (int64, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.visitors) >= pruneThreshold {
		for key, v := range rl.visitors {
			if !now.Before(v.resetAt) {
				delete(rl.visitors, key)
			}
		}
	}

	v, ok := rl.visitors[ip]
	if !ok || !now.Before(v.resetAt) {
		v = &visitor{resetAt: now.Add(rl.window)}
		rl.visitors[ip] = v
	}
	v.count++
	return v.count, v.resetAt.Sub(now)
}
