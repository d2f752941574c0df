package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CtxKeyCode 业务码写进 gin.Context，供 metrics / access log 使用
const CtxKeyCode = "respCode"

// Write HTTP 状态固定 200，业务结果看 code
func Write(c *gin.Context, r Resp) {
	c.Set(CtxKeyCode, r.Code)
	c.JSON(http.StatusOK, r)
}

// Abort 中间件拦截时使用
func Abort(c *gin.Context, r Resp) {
	c.Set(CtxKeyCode, r.Code)
	c.AbortWithStatusJSON(http.StatusOK, r)
}

// CodeOf 取本次请求的业务码；未经过 Write/Abort 时退回 HTTP 状态
func CodeOf(c *gin.Context) int {
	if v, ok := c.Get(CtxKeyCode); ok {
		if code, ok := v.(int); ok {
			return code
		}
	}
	if s := c.Writer.Status(); s != http.StatusOK {
		return s
	}
	return CodeOK
}
