package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rbac-vault/internal/domain"
	"rbac-vault/internal/feature/access"
)

// 允许排序的列，防止拼接任意 SQL
var roleSortable = map[string]string{
	"id":         "id",
	"name":       "name",
	"sort":       "sort",
	"created_at": "created_at",
}

type RoleRepo struct{ db *gorm.DB }

func NewRoleRepo(db *gorm.DB) *RoleRepo { return &RoleRepo{db: db} }

var _ domain.RoleStore = (*RoleRepo)(nil)

func (r *RoleRepo) ListAll(ctx context.Context, sortField, sortDir string, activeOnly bool) ([]domain.Role, error) {
	col, ok := roleSortable[strings.ToLower(strings.TrimSpace(sortField))]
	if !ok {
		col = "id"
	}
	desc := strings.EqualFold(strings.TrimSpace(sortDir), "desc")

	q := r.db.WithContext(ctx).Model(&access.RoleModel{})
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var ms []access.RoleModel
	if err := q.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: desc}).Find(&ms).Error; err != nil {
		return nil, domain.StoreFailure("list roles failed", err)
	}
	return toRoles(ms), nil
}

// FindByIDs 只返回存在且启用的角色
func (r *RoleRepo) FindByIDs(ctx context.Context, ids []uint) ([]domain.Role, error) {
	if len(ids) == 0 {
		return []domain.Role{}, nil
	}
	var ms []access.RoleModel
	err := r.db.WithContext(ctx).
		Where("id IN ? AND active = ?", ids, true).
		Order("id ASC").
		Find(&ms).Error
	if err != nil {
		return nil, domain.StoreFailure("find roles failed", err)
	}
	return toRoles(ms), nil
}

func toRoles(ms []access.RoleModel) []domain.Role {
	out := make([]domain.Role, 0, len(ms))
	for i := range ms {
		out = append(out, ms[i].ToDomain())
	}
	return out
}
