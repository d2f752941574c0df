package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "rbac-vault/internal/transport/http/response"
)

// MaxBodyBytes 限制请求体大小（limits.maxbodymb）
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			resp.Abort(c, resp.Error(resp.CodeBadRequest, "request body too large"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
