package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/phambaophuc/image-watermark/internal/models"
	"golang.org/x/time/rate"
)

type Limiter interface {
	Allow(key string) bool
}

// MemoryLimiter keeps one token bucket per key. Idle keys are forgotten
// after ttl.
type MemoryLimiter struct {
	limiters *expirable.LRU[string, *rate.Limiter]
	r        rate.Limit
	b        int
	mu       sync.Mutex
}

func NewMemoryLimiter(requestsPerSecond float64, burst, size int, ttl time.Duration) *MemoryLimiter {
	if burst < 1 {
		burst = 1
	}
	return &MemoryLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](size, nil, ttl),
		r:        rate.Limit(requestsPerSecond),
		b:        burst,
	}
}

func (m *MemoryLimiter) Allow(key string) bool {
	limiter, exists := m.limiters.Get(key)
	if !exists {
		m.mu.Lock()
		limiter, exists = m.limiters.Get(key)
		if !exists {
			limiter = rate.NewLimiter(m.r, m.b)
			m.limiters.Add(key, limiter)
		}
		m.mu.Unlock()
	}
	return limiter.Allow()
}

// RateLimit rejects clients that exceed limiter with 429.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !limiter.Allow(ctx.ClientIP()) {
			ctx.Header("Retry-After", "1")
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, models.APIResponse{
				Success: false,
				Error:   "Too many requests",
			})
			return
		}
		ctx.Next()
	}
}
