package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rbac-vault/internal/core/auth"
	"rbac-vault/internal/domain"
	"rbac-vault/internal/service"
	httpez "rbac-vault/internal/transport/http/ez"
)

// AuthHandler 后台登录；持有 adminRole 的用户拿到 admin token
type AuthHandler struct {
	svc       *service.UserService
	jwter     *auth.JWTer
	adminRole string
}

func NewAuthHandler(svc *service.UserService, jwter *auth.JWTer, adminRole string) *AuthHandler {
	return &AuthHandler{svc: svc, jwter: jwter, adminRole: adminRole}
}

type loginIn struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginOut struct {
	Token string       `json:"token"`
	Role  string       `json:"role"`
	User  *domain.User `json:"user"`
}

// MountPublic 挂在不需要登录的分组上
func (h *AuthHandler) MountPublic(g *gin.RouterGroup) {
	httpez.RegisterAction(httpez.New(g), httpez.Action[loginIn, loginOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (loginOut, error) {
			u, err := h.svc.Authenticate(c.Request.Context(), in.Email, in.Password)
			if errors.Is(err, service.ErrInvalidCredentials) {
				return loginOut{}, httpez.Unauthorized("invalid credentials")
			}
			if err != nil {
				return loginOut{}, err
			}
			role := auth.RoleUser
			if h.isAdmin(u) {
				role = auth.RoleAdmin
			}
			tok, err := h.jwter.Issue(u.ID, role)
			if err != nil {
				return loginOut{}, httpez.Internal("issue token failed", err)
			}
			return loginOut{Token: tok, Role: role, User: u}, nil
		},
	})
}

func (h *AuthHandler) isAdmin(u *domain.User) bool {
	for _, r := range u.Roles {
		if r.Name == h.adminRole {
			return true
		}
	}
	return false
}
