package domain

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation   Kind = "validation_failed"
	KindNoRoles      Kind = "no_roles_assigned"
	KindNotFound     Kind = "not_found"
	KindStoreFailure Kind = "store_failure"
)

// FieldErrors 字段 -> 错误信息列表
type FieldErrors map[string][]string

func (f FieldErrors) Add(field, msg string) { f[field] = append(f[field], msg) }

// Error 账户管理的统一错误；调用方按 Kind 分支，不需要 recover
type Error struct {
	Kind    Kind
	Message string
	Fields  FieldErrors
	ID      uint // NotFound 的目标 id
	UserID  uint // NoRolesAssigned：已存在的用户 id（0 表示尚未创建）
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func ValidationFailed(fields FieldErrors) *Error {
	return &Error{Kind: KindValidation, Message: "the given data was invalid", Fields: fields}
}

func NoRolesAssigned(userID uint) *Error {
	return &Error{
		Kind:    KindNoRoles,
		Message: "you must choose at least one role",
		Fields:  FieldErrors{"assignees_roles": {"you must choose at least one role"}},
		UserID:  userID,
	}
}

func NotFound(id uint) *Error {
	return &Error{Kind: KindNotFound, Message: "that user does not exist", ID: id}
}

func StoreFailure(msg string, err error) *Error {
	return &Error{Kind: KindStoreFailure, Message: msg, Err: err}
}

// As 取出 *Error；非 *Error 返回 nil
func As(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return nil
}

// KindOf 未分类的错误一律视为 store failure
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if de := As(err); de != nil {
		return de.Kind
	}
	return KindStoreFailure
}
