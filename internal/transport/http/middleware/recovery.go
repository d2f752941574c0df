package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "rbac-vault/internal/transport/http/response"
)

// Recovery panic 转成统一信封，带上 request id 记日志
func Recovery(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				l.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("rid", c.GetString(KeyRequestID)),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				resp.Abort(c, resp.Error(resp.CodeServerError, "internal error"))
			}
		}()
		c.Next()
	}
}
