package service

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"rbac-vault/internal/domain"
)

// 字段名用 json tag，便于前端直接按 key 显示
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	// maxbytes 按字节计长度（max 按字符），密码要满足 bcrypt 的 72 字节上限
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= n
	})
	return v
}

func validateFields(v *validator.Validate, in any) domain.FieldErrors {
	fe := domain.FieldErrors{}
	err := v.Struct(in)
	if err == nil {
		return fe
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		fe.Add("_", err.Error())
		return fe
	}
	for _, e := range errs {
		field := e.Field()
		// 确认密码不一致记在 password 上
		if e.Tag() == "eqfield" && field == "password_confirmation" {
			fe.Add("password", "the password confirmation does not match")
			continue
		}
		fe.Add(field, message(field, e))
	}
	return fe
}

func message(field string, e validator.FieldError) string {
	name := strings.ReplaceAll(field, "_", " ")
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("the %s field is required", name)
	case "email":
		return fmt.Sprintf("the %s must be a valid email address", name)
	case "max":
		return fmt.Sprintf("the %s may not be greater than %s characters", name, e.Param())
	case "maxbytes":
		return fmt.Sprintf("the %s may not be greater than %s bytes", name, e.Param())
	case "min":
		return fmt.Sprintf("the %s must be at least %s characters", name, e.Param())
	case "oneof":
		return fmt.Sprintf("the selected %s is invalid", name)
	case "eqfield":
		return fmt.Sprintf("the %s does not match", name)
	}
	return fmt.Sprintf("the %s is invalid", name)
}
