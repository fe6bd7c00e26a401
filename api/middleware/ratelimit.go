package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pricewatch/config"
	"github.com/use-agent/pricewatch/models"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL   = time.Hour
	limiterSweepTick = 5 * time.Minute
)

type clientLimiter struct {
	*rate.Limiter
	lastSeen time.Time
}

// clientLimiters holds one token bucket per client IP.
type clientLimiters struct {
	mu      sync.Mutex
	byIP    map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
}

func newClientLimiters(cfg config.RateLimitConfig) *clientLimiters {
	return &clientLimiters{
		byIP:    make(map[string]*clientLimiter),
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		idleTTL: limiterIdleTTL,
	}
}

// reserve takes a token for ip. When none is available it returns false
// and how long the client should wait.
func (l *clientLimiters) reserve(ip string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	cl, ok := l.byIP[ip]
	if !ok {
		cl = &clientLimiter{Limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byIP[ip] = cl
	}
	cl.lastSeen = now
	l.mu.Unlock()

	if cl.AllowN(now, 1) {
		return true, 0
	}
	r := cl.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

// sweep drops buckets idle since before now-idleTTL and returns how many
// remain.
func (l *clientLimiters) sweep(now time.Time) int {
	cutoff := now.Add(-l.idleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, cl := range l.byIP {
		if cl.lastSeen.Before(cutoff) {
			delete(l.byIP, ip)
		}
	}
	return len(l.byIP)
}

// sweepUntil sweeps every tick until ctx is done.
func (l *clientLimiters) sweepUntil(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.sweep(now)
		}
	}
}

// RateLimit returns per-client-IP token-bucket rate limiting middleware.
//
// A batch call can hold outbound connections to every competitor for the
// whole deadline, so the default budget is small. Rejected requests carry a
// Retry-After header in whole seconds. Idle buckets are swept until ctx is
// done.
func RateLimit(ctx context.Context, cfg config.RateLimitConfig) gin.HandlerFunc {
	limiters := newClientLimiters(cfg)
	go limiters.sweepUntil(ctx, limiterSweepTick)

	return func(c *gin.Context) {
		ok, wait := limiters.reserve(c.ClientIP(), time.Now())
		if ok {
			c.Next()
			return
		}
		if wait > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
			Error: &models.ErrorDetail{
				Code:    models.ErrCodeRateLimited,
				Message: "rate limit exceeded, please slow down",
			},
		})
	}
}
