package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	resp "rbac-vault/internal/transport/http/response"
)

// RateLimit 全局令牌桶限速
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		resp.Abort(c, resp.Error(resp.CodeTooManyRequests, "too many requests"))
	}
}

// RateLimitPerIP 每 IP 限速（登录接口用，防爆破）
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	return rateLimitPerIP(rps, burst, ipBuckets, ipBucketTTL)
}

const (
	ipBuckets   = 10000
	ipBucketTTL = 10 * time.Minute
)

// 桶按 LRU+TTL 淘汰，IP 再多内存也有上限
func rateLimitPerIP(rps rate.Limit, burst, size int, ttl time.Duration) gin.HandlerFunc {
	var mu sync.Mutex
	buckets := expirable.NewLRU[string, *rate.Limiter](size, nil, ttl)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		mu.Lock()
		lim, ok := buckets.Get(ip)
		if !ok {
			lim = rate.NewLimiter(rps, burst)
			buckets.Add(ip, lim)
		}
		mu.Unlock()
		if lim.Allow() {
			c.Next()
			return
		}
		resp.Abort(c, resp.Error(resp.CodeTooManyRequests, "too many requests"))
	}
}
