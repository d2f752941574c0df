package access

import (
	"time"

	"gorm.io/gorm"

	"rbac-vault/internal/domain"
)

type UserModel struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:191;not null"`
	PasswordHash string `gorm:"size:100;not null"`
	Status       string `gorm:"size:16;not null;default:active;index"`

	Roles []RoleModel `gorm:"many2many:assigned_roles;joinForeignKey:UserID;joinReferences:RoleID"`

	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (UserModel) TableName() string { return "users" }

type RoleModel struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	Name   string `gorm:"uniqueIndex;size:64;not null"`
	Sort   int    `gorm:"not null;default:0"`
	Active bool   `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (RoleModel) TableName() string { return "roles" }

// AssignedRoleModel users <-> roles 关联表；直接写这张表，避免 gorm 关联 upsert 角色行
type AssignedRoleModel struct {
	UserID uint `gorm:"primaryKey"`
	RoleID uint `gorm:"primaryKey;index"`
}

func (AssignedRoleModel) TableName() string { return "assigned_roles" }

// Models 迁移顺序
func Models() []any { return []any{&RoleModel{}, &UserModel{}, &AssignedRoleModel{}} }

func (m *UserModel) ToDomain() *domain.User {
	u := &domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Status:       domain.UserStatus(m.Status),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.DeletedAt.Valid {
		at := m.DeletedAt.Time
		u.Deleted = true
		u.DeletedAt = &at
	}
	if m.Roles != nil {
		u.Roles = make([]domain.Role, 0, len(m.Roles))
		for i := range m.Roles {
			u.Roles = append(u.Roles, m.Roles[i].ToDomain())
		}
	}
	return u
}

func (m *RoleModel) ToDomain() domain.Role {
	return domain.Role{ID: m.ID, Name: m.Name, Sort: m.Sort, Active: m.Active}
}
