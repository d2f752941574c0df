package domain

import "context"

// UserStore 用户持久化。所有错误都应是 *Error（NotFound / ValidationFailed / StoreFailure）
type UserStore interface {
	List(ctx context.Context, q ListQuery) (*UserPage, error)
	Create(ctx context.Context, u NewUser, roleIDs []uint) (*User, error)
	FindByID(ctx context.Context, id uint, withRoles bool) (*User, error)
	// FindByEmail 包含软删用户；不存在返回 nil, nil
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id uint, ch UserChanges, roleIDs []uint) (*User, error)
	SoftDelete(ctx context.Context, id uint) error
	HardDelete(ctx context.Context, id uint) error
	Restore(ctx context.Context, id uint) (*User, error)
	SetStatus(ctx context.Context, id uint, status UserStatus) (*User, error)
	UpdatePassword(ctx context.Context, id uint, passwordHash string) (*User, error)
}

type RoleStore interface {
	ListAll(ctx context.Context, sortField, sortDir string, activeOnly bool) ([]Role, error)
	FindByIDs(ctx context.Context, ids []uint) ([]Role, error)
}
