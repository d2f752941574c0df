package domain

import (
	"strings"
	"time"
)

type UserStatus string

const (
	StatusActive      UserStatus = "active"
	StatusDeactivated UserStatus = "deactivated"
)

// ParseStatus 兼容旧的数字写法：1 = active，0 = deactivated
func ParseStatus(s string) (UserStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "1":
		return StatusActive, true
	case "deactivated", "0":
		return StatusDeactivated, true
	}
	return "", false
}

func (s UserStatus) Valid() bool { return s == StatusActive || s == StatusDeactivated }

type User struct {
	ID           uint       `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Status       UserStatus `json:"status"`
	Deleted      bool       `json:"deleted"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
	Roles        []Role     `json:"roles,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// RoleIDs 返回已加载角色的 id（未加载时为空）
func (u *User) RoleIDs() []uint {
	ids := make([]uint, 0, len(u.Roles))
	for _, r := range u.Roles {
		ids = append(ids, r.ID)
	}
	return ids
}

// UserFields 创建/编辑表单字段（assignees_roles 单独传）
type UserFields struct {
	Name                 string     `json:"name" validate:"required,max=64"`
	Email                string     `json:"email" validate:"required,email,max=191"`
	Password             string     `json:"password" validate:"omitempty,maxbytes=72"`
	PasswordConfirmation string     `json:"password_confirmation" validate:"omitempty,eqfield=Password"`
	Status               UserStatus `json:"status" validate:"omitempty,oneof=active deactivated"`
}

type PasswordFields struct {
	Password             string `json:"password" validate:"required,maxbytes=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

// NewUser 由 store 持久化的数据（密码已哈希）
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Status       UserStatus
}

// UserChanges 编辑时的变更；PasswordHash 为空表示不改密码
type UserChanges struct {
	Name         string
	Email        string
	PasswordHash string
}

type ListQuery struct {
	Status      UserStatus // 为空则不按状态过滤
	OnlyDeleted bool
	PerPage     int
	Page        int
}

type UserPage struct {
	Items   []User `json:"items"`
	Total   int64  `json:"total"`
	Page    int    `json:"page"`
	PerPage int    `json:"perPage"`
}
