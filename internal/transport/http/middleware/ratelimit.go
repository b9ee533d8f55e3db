package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	resp "papervault/internal/transport/http/response"
)

// RateLimit 全局令牌桶限速
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		resp.Abort(c, http.StatusTooManyRequests, "too many requests")
	}
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

const (
	visitorTTL   = 10 * time.Minute
	sweepTrigger = 4096
)

// RateLimitPerIP 每 IP 限速；桶数过多时清掉长时间未出现的 IP
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	buckets := make(map[string]*visitor)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		v, ok := buckets[ip]
		if !ok {
			if len(buckets) >= sweepTrigger {
				for k, old := range buckets {
					if now.Sub(old.seen) > visitorTTL {
						delete(buckets, k)
					}
				}
			}
			v = &visitor{lim: rate.NewLimiter(rps, burst)}
			buckets[ip] = v
		}
		v.seen = now
		allowed := v.lim.Allow()
		mu.Unlock()

		if allowed {
			c.Next()
			return
		}
		resp.Abort(c, http.StatusTooManyRequests, "too many requests")
	}
}
