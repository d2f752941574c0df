package ez

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rbac-vault/internal/domain"
	mdw "rbac-vault/internal/transport/http/middleware"
	resp "rbac-vault/internal/transport/http/response"
)

const RedirectBack = "back"

type EZ struct {
	g *gin.RouterGroup
	// EditRoute 编辑页路径模板（%d 为用户 id），NoRolesAssigned 带 id 时跳过去
	EditRoute string
}

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

func (e EZ) WithEditRoute(format string) EZ {
	e.EditRoute = format
	return e
}

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// 统一错误对象（配合 resp.Error(int, msg)）
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string   // "GET" | "POST" | "PUT" | "DELETE"
	Path    string   // 例："/users/:id/restore"
	Binder  Binder   // 绑定方式
	Auth    bool     // 是否要求登录（检查 AuthJWT 写入的 userId）
	Roles   []string // 限定角色（可选）
	Msg     string   // 成功提示
	Handler func(c *gin.Context, in *I) (O, error)
}

// 失败时 data 的结构：字段错误 + 跳转目标
type failure struct {
	Errors   domain.FieldErrors `json:"errors,omitempty"`
	Redirect string             `json:"redirect"`
}

// RegisterAction 在当前 EZ 下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 鉴权/角色
		if a.Auth {
			if c.GetString(mdw.KeyUserID) == "" {
				resp.Write(c, resp.Error(resp.CodeUnauthorized, "unauthorized"))
				return
			}
			if len(a.Roles) > 0 && !hasRole(c.GetString(mdw.KeyRole), a.Roles) {
				resp.Write(c, resp.Error(resp.CodeForbidden, "forbidden"))
				return
			}
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			resp.Write(c, resp.Fail(resp.CodeBadRequest, bindErr.Error(), failure{Redirect: RedirectBack}))
			return
		}

		// 3) 执行
		out, err := a.Handler(c, &in)

		// 4) 统一错误映射
		if err != nil {
			_ = c.Error(err)
			resp.Write(c, e.Render(err))
			return
		}
		resp.Write(c, resp.Success(a.Msg, out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodPatch:
		e.g.PATCH(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

// Render 把错误转成响应体；domain.Error 按 Kind 分支
func (e EZ) Render(err error) resp.Resp {
	var ae *AErr
	if errors.As(err, &ae) {
		return resp.Fail(ae.Code, ae.Error(), failure{Redirect: RedirectBack})
	}
	de := domain.As(err)
	if de == nil {
		return resp.Fail(resp.CodeServerError, err.Error(), failure{Redirect: RedirectBack})
	}
	switch de.Kind {
	case domain.KindValidation:
		return resp.Fail(resp.CodeBadRequest, de.Message, failure{Errors: de.Fields, Redirect: RedirectBack})
	case domain.KindNoRoles:
		to := RedirectBack
		if de.UserID != 0 && e.EditRoute != "" {
			to = fmt.Sprintf(e.EditRoute, de.UserID)
		}
		return resp.Fail(resp.CodeUnprocessable, de.Message, failure{Errors: de.Fields, Redirect: to})
	case domain.KindNotFound:
		return resp.Fail(resp.CodeNotFound, de.Message, failure{Redirect: RedirectBack})
	default:
		// 不把底层错误细节暴露给前端
		return resp.Fail(resp.CodeServerError, de.Message, failure{Redirect: RedirectBack})
	}
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}
