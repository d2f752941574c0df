package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"rbac-vault/internal/core/auth"
	resp "rbac-vault/internal/transport/http/response"
)

const (
	KeyUserID = "userId"
	KeyRole   = "role"
)

func AuthJWT(j *auth.JWTer, requireRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			resp.Abort(c, resp.Error(resp.CodeUnauthorized, "missing token"))
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			resp.Abort(c, resp.Error(resp.CodeUnauthorized, "invalid token"))
			return
		}
		if _, err := claims.UserID(); err != nil {
			resp.Abort(c, resp.Error(resp.CodeUnauthorized, "invalid token subject"))
			return
		}
		if requireRole != "" && claims.Role != requireRole {
			resp.Abort(c, resp.Error(resp.CodeForbidden, "forbidden"))
			return
		}
		c.Set(KeyUserID, claims.UID)
		c.Set(KeyRole, claims.Role)
		c.Next()
	}
}
