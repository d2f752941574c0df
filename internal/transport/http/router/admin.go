package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"rbac-vault/internal/core/auth"
	"rbac-vault/internal/core/config"
	"rbac-vault/internal/core/server"
	mdw "rbac-vault/internal/transport/http/middleware"
)

const AdminPrefix = "/admin/v1"

// NewAdminEngine 后台 engine；mods 按 PublicModule / AdminModule 自动分组挂载
func NewAdminEngine(l *zap.Logger, lim config.Limits, jwter *auth.JWTer, mods ...any) *gin.Engine {
	lim = limitsOrDefault(lim)
	r := server.NewRouter(l)

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst),
		mdw.ConcurrencyLimit(lim.MaxConcurrent),
		mdw.MaxBodyBytes(lim.MaxBodyMB<<20),
		mdw.Timeout(time.Duration(lim.TimeoutSec)*time.Second),
		mdw.Metrics(),
		mdw.AccessLog(l),
		mdw.Recovery(l), // 放最后：panic 请求也要计数、记访问日志
	)

	// 健康检查 / 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var reg Registry
	reg.Register(mods...)

	// 公共：登录（按 IP 再限一层）
	public := r.Group(AdminPrefix)
	public.Use(mdw.RateLimitPerIP(rate.Limit(5), 10))
	reg.MountPublic(public)

	// 管理端 v1（统一要求 admin 角色）
	admin := r.Group(AdminPrefix)
	admin.Use(mdw.AuthJWT(jwter, auth.RoleAdmin))
	reg.MountAdmin(admin)

	return r
}

// 配置缺省时的兜底值（与 config 默认一致）
func limitsOrDefault(lim config.Limits) config.Limits {
	if lim.RPS <= 0 {
		lim.RPS = 200
	}
	if lim.Burst <= 0 {
		lim.Burst = 400
	}
	if lim.MaxConcurrent <= 0 {
		lim.MaxConcurrent = 300
	}
	if lim.MaxBodyMB <= 0 {
		lim.MaxBodyMB = 16
	}
	if lim.TimeoutSec <= 0 {
		lim.TimeoutSec = 10
	}
	return lim
}
