package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	resp "rbac-vault/internal/transport/http/response"
)

var (
	// code 为信封里的业务码（HTTP 状态恒为 200）
	httpReqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "vault_http_requests_total", Help: "Count of HTTP requests by route and envelope code"},
		[]string{"path", "method", "code"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vault_http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"},
	)
)

func init() { prometheus.MustRegister(httpReqTotal, httpLatency) }

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched" // 避免任意 URL 撑爆 label
		}
		httpReqTotal.WithLabelValues(path, c.Request.Method, strconv.Itoa(resp.CodeOf(c))).Inc()
		httpLatency.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
