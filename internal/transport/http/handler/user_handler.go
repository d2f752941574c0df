package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rbac-vault/internal/core/auth"
	"rbac-vault/internal/domain"
	"rbac-vault/internal/service"
	httpez "rbac-vault/internal/transport/http/ez"
)

const (
	MsgCreated         = "The user was successfully created."
	MsgUpdated         = "The user was successfully updated."
	MsgDeleted         = "The user was successfully deleted."
	MsgDeletedForever  = "The user was deleted permanently."
	MsgRestored        = "The user was successfully restored."
	MsgStatusUpdated   = "The user was successfully updated."
	MsgPasswordUpdated = "The user's password was successfully updated."
)

// UserHandler 后台用户管理（/admin/v1/users/...）
type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Priority() int { return 10 }

type pageQ struct {
	Page    int `form:"page,default=1"`
	PerPage int `form:"per_page"`
}

type showQ struct {
	WithRoles bool `form:"with_roles"`
}

// 表单：用户字段 + assignees_roles
type userForm struct {
	domain.UserFields
	Roles []uint `json:"assignees_roles"`
}

type formOut struct {
	Roles []domain.Role `json:"roles"`
}

type editOut struct {
	User      *domain.User  `json:"user"`
	UserRoles []uint        `json:"user_roles"`
	Roles     []domain.Role `json:"roles"`
}

type deletedOut struct {
	ID uint `json:"id"`
}

func (h *UserHandler) MountAdmin(g *gin.RouterGroup) {
	ez := httpez.New(g).WithEditRoute(g.BasePath() + "/users/%d/edit")

	// --- 列表 ---
	httpez.RegisterAction(ez, adminOnly(httpez.Action[pageQ, *domain.UserPage]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *pageQ) (*domain.UserPage, error) {
			return h.svc.ListActive(c.Request.Context(), in.PerPage, in.Page)
		},
	}))
	httpez.RegisterAction(ez, adminOnly(httpez.Action[pageQ, *domain.UserPage]{
		Method: http.MethodGet,
		Path:   "/users/deactivated",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *pageQ) (*domain.UserPage, error) {
			return h.svc.ListDeactivated(c.Request.Context(), in.Page)
		},
	}))
	httpez.RegisterAction(ez, adminOnly(httpez.Action[pageQ, *domain.UserPage]{
		Method: http.MethodGet,
		Path:   "/users/deleted",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *pageQ) (*domain.UserPage, error) {
			return h.svc.ListDeleted(c.Request.Context(), in.Page)
		},
	}))

	// --- 创建 ---
	httpez.RegisterAction(ez, adminOnly(httpez.Action[struct{}, formOut]{
		Method: http.MethodGet,
		Path:   "/users/create",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (formOut, error) {
			rs, err := h.svc.RolesForForm(c.Request.Context())
			return formOut{Roles: rs}, err
		},
	}))
	httpez.RegisterAction(ez, adminOnly(httpez.Action[userForm, *domain.User]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: httpez.BindJSON,
		Msg:    MsgCreated,
		Handler: func(c *gin.Context, in *userForm) (*domain.User, error) {
			return h.svc.CreateUser(c.Request.Context(), in.UserFields, in.Roles)
		},
	}))

	// --- 查看 / 编辑 ---
	httpez.RegisterAction(ez, adminOnly(httpez.Action[showQ, *domain.User]{
		Method: http.MethodGet,
		Path:   "/users/:id",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *showQ) (*domain.User, error) {
			id, err := idParam(c)
			if err != nil {
				return nil, err
			}
			return h.svc.GetUser(c.Request.Context(), id, in.WithRoles)
		},
	}))
	httpez.RegisterAction(ez, adminOnly(httpez.Action[struct{}, editOut]{
		Method: http.MethodGet,
		Path:   "/users/:id/edit",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (editOut, error) {
			id, err := idParam(c)
			if err != nil {
				return editOut{}, err
			}
			u, err := h.svc.GetUser(c.Request.Context(), id, true)
			if err != nil {
				return editOut{}, err
			}
			rs, err := h.svc.RolesForForm(c.Request.Context())
			if err != nil {
				return editOut{}, err
			}
			return editOut{User: u, UserRoles: u.RoleIDs(), Roles: rs}, nil
		},
	}))
	httpez.RegisterAction(ez, adminOnly(httpez.Action[userForm, *domain.User]{
		Method: http.MethodPut,
		Path:   "/users/:id",
		Binder: httpez.BindJSON,
		Msg:    MsgUpdated,
		Handler: func(c *gin.Context, in *userForm) (*domain.User, error) {
			id, err := idParam(c)
			if err != nil {
				return nil, err
			}
			return h.svc.UpdateUser(c.Request.Context(), id, in.UserFields, in.Roles)
		},
	}))

	// --- 删除 / 恢复 ---
	httpez.RegisterAction(ez, adminOnly(httpez.Action[struct{}, deletedOut]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Msg:    MsgDeleted,
		Handler: func(c *gin.Context, _ *struct{}) (deletedOut, error) {
			id, err := idParam(c)
			if err != nil {
				return deletedOut{}, err
			}
			return deletedOut{ID: id}, h.svc.DestroyUser(c.Request.Context(), id)
		},
	}))
	httpez.RegisterAction(ez, adminOnly(httpez.Action[struct{}, deletedOut]{
		Method: http.MethodDelete,
		Path:   "/users/:id/delete",
		Binder: httpez.BindNone,
		Msg:    MsgDeletedForever,
		Handler: func(c *gin.Context, _ *struct{}) (deletedOut, error) {
			id, err := idParam(c)
			if err != nil {
				return deletedOut{}, err
			}
			return deletedOut{ID: id}, h.svc.DeleteUserPermanently(c.Request.Context(), id)
		},
	}))
	httpez.RegisterAction(ez, adminOnly(httpez.Action[struct{}, *domain.User]{
		Method: http.MethodPut,
		Path:   "/users/:id/restore",
		Binder: httpez.BindNone,
		Msg:    MsgRestored,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			id, err := idParam(c)
			if err != nil {
				return nil, err
			}
			return h.svc.RestoreUser(c.Request.Context(), id)
		},
	}))

	// --- 状态 ---
	httpez.RegisterAction(ez, adminOnly(httpez.Action[struct{}, *domain.User]{
		Method: http.MethodPut,
		Path:   "/users/:id/mark/:status",
		Binder: httpez.BindNone,
		Msg:    MsgStatusUpdated,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			id, err := idParam(c)
			if err != nil {
				return nil, err
			}
			st, ok := domain.ParseStatus(c.Param("status"))
			if !ok {
				// 交给 service 统一返回 ValidationFailed
				st = domain.UserStatus(c.Param("status"))
			}
			return h.svc.MarkUser(c.Request.Context(), id, st)
		},
	}))

	// --- 改密码 ---
	httpez.RegisterAction(ez, adminOnly(httpez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/users/:id/password/change",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			id, err := idParam(c)
			if err != nil {
				return nil, err
			}
			return h.svc.GetUser(c.Request.Context(), id, false)
		},
	}))
	httpez.RegisterAction(ez, adminOnly(httpez.Action[domain.PasswordFields, *domain.User]{
		Method: http.MethodPost,
		Path:   "/users/:id/password/change",
		Binder: httpez.BindJSON,
		Msg:    MsgPasswordUpdated,
		Handler: func(c *gin.Context, in *domain.PasswordFields) (*domain.User, error) {
			id, err := idParam(c)
			if err != nil {
				return nil, err
			}
			return h.svc.UpdatePassword(c.Request.Context(), id, *in)
		},
	}))
}

// adminOnly 分组已挂 AuthJWT(admin)，动作上再校验一次角色
func adminOnly[I, O any](a httpez.Action[I, O]) httpez.Action[I, O] {
	a.Auth = true
	a.Roles = []string{auth.RoleAdmin}
	return a
}

func idParam(c *gin.Context) (uint, error) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || n == 0 {
		return 0, httpez.BadRequest("invalid id")
	}
	return uint(n), nil
}
