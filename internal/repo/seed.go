package repo

import (
	"context"

	"gorm.io/gorm"

	"rbac-vault/internal/domain"
	"rbac-vault/internal/feature/access"
)

// DefaultRoles 初始化时写入的角色，sort 按顺序递增
var DefaultRoles = []string{"Administrator", "User"}

// SeedRoles 按名字幂等写入角色；已存在的不改
func SeedRoles(ctx context.Context, db *gorm.DB, names ...string) ([]domain.Role, error) {
	out := make([]domain.Role, 0, len(names))
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, name := range names {
			m := access.RoleModel{Name: name}
			if err := tx.Where(access.RoleModel{Name: name}).
				Attrs(access.RoleModel{Sort: i + 1, Active: true}).
				FirstOrCreate(&m).Error; err != nil {
				return err
			}
			out = append(out, m.ToDomain())
		}
		return nil
	})
	if err != nil {
		return nil, domain.StoreFailure("seed roles failed", err)
	}
	return out, nil
}
