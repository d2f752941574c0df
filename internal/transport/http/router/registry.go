package router

import (
	"sort"

	"github.com/gin-gonic/gin"
)

// 模块可选择实现其中一个或两个接口
type PublicModule interface{ MountPublic(*gin.RouterGroup) } // 无需登录
type AdminModule interface{ MountAdmin(*gin.RouterGroup) }   // 需要 admin token

// 可选：实现该接口可控制挂载顺序（数值越小越先挂）
// 不实现则默认 100
type prioritizer interface{ Priority() int }

// Registry 收集模块，engine 构建时一次性挂载
type Registry struct {
	public []PublicModule
	admin  []AdminModule
}

// Register 根据类型断言分发到 public/admin 列表
func (r *Registry) Register(mods ...any) {
	for _, mod := range mods {
		if m, ok := mod.(PublicModule); ok {
			r.public = append(r.public, m)
		}
		if m, ok := mod.(AdminModule); ok {
			r.admin = append(r.admin, m)
		}
	}
}

func (r *Registry) MountPublic(g *gin.RouterGroup) {
	mods := append([]PublicModule(nil), r.public...)
	sort.SliceStable(mods, func(i, j int) bool { return priorityOf(mods[i]) < priorityOf(mods[j]) })
	for _, m := range mods {
		m.MountPublic(g)
	}
}

func (r *Registry) MountAdmin(g *gin.RouterGroup) {
	mods := append([]AdminModule(nil), r.admin...)
	sort.SliceStable(mods, func(i, j int) bool { return priorityOf(mods[i]) < priorityOf(mods[j]) })
	for _, m := range mods {
		m.MountAdmin(g)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
