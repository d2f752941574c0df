package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rbac-vault/internal/domain"
	"rbac-vault/internal/feature/access"
)

const defaultPerPage = 10

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

var _ domain.UserStore = (*UserRepo)(nil)

func (r *UserRepo) List(ctx context.Context, q domain.ListQuery) (*domain.UserPage, error) {
	if q.PerPage <= 0 {
		q.PerPage = defaultPerPage
	}
	if q.Page < 1 {
		q.Page = 1
	}

	tx := r.db.WithContext(ctx).Model(&access.UserModel{})
	if q.OnlyDeleted {
		tx = tx.Unscoped().Where("deleted_at IS NOT NULL")
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", string(q.Status))
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, domain.StoreFailure("count users failed", err)
	}

	var ms []access.UserModel
	err := tx.Preload("Roles", orderRoles).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Limit(q.PerPage).Offset((q.Page - 1) * q.PerPage).
		Find(&ms).Error
	if err != nil {
		return nil, domain.StoreFailure("list users failed", err)
	}

	out := &domain.UserPage{Items: make([]domain.User, 0, len(ms)), Total: total, Page: q.Page, PerPage: q.PerPage}
	for i := range ms {
		out.Items = append(out.Items, *ms[i].ToDomain())
	}
	return out, nil
}

func (r *UserRepo) Create(ctx context.Context, u domain.NewUser, roleIDs []uint) (*domain.User, error) {
	m := access.UserModel{
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Status:       string(u.Status),
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&m).Error; err != nil {
			return err
		}
		return assignRoles(tx, m.ID, roleIDs)
	})
	if err != nil {
		return nil, translate(err, 0, "create user failed")
	}
	return r.FindByID(ctx, m.ID, true)
}

func (r *UserRepo) FindByID(ctx context.Context, id uint, withRoles bool) (*domain.User, error) {
	var m access.UserModel
	tx := r.db.WithContext(ctx)
	if withRoles {
		tx = tx.Preload("Roles", orderRoles)
	}
	if err := tx.First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err, id, "find user failed")
	}
	return m.ToDomain(), nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var m access.UserModel
	err := r.db.WithContext(ctx).Unscoped().First(&m, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StoreFailure("find user by email failed", err)
	}
	return m.ToDomain(), nil
}

func (r *UserRepo) Update(ctx context.Context, id uint, ch domain.UserChanges, roleIDs []uint) (*domain.User, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m access.UserModel
		if err := tx.First(&m, "id = ?", id).Error; err != nil {
			return err
		}
		cols := map[string]any{"name": ch.Name, "email": ch.Email}
		if ch.PasswordHash != "" {
			cols["password_hash"] = ch.PasswordHash
		}
		if err := tx.Model(&m).Updates(cols).Error; err != nil {
			return err
		}
		if roleIDs == nil {
			return nil
		}
		if err := tx.Where("user_id = ?", id).Delete(&access.AssignedRoleModel{}).Error; err != nil {
			return err
		}
		return assignRoles(tx, id, roleIDs)
	})
	if err != nil {
		return nil, translate(err, id, "update user failed")
	}
	return r.FindByID(ctx, id, true)
}

func (r *UserRepo) SoftDelete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&access.UserModel{})
	if res.Error != nil {
		return domain.StoreFailure("delete user failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound(id)
	}
	return nil
}

// HardDelete 物理删除，连同角色关联；软删与否都可以
func (r *UserRepo) HardDelete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m access.UserModel
		if err := tx.Unscoped().First(&m, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&access.AssignedRoleModel{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&m).Error
	})
	if err != nil {
		return translate(err, id, "delete user permanently failed")
	}
	return nil
}

// Restore 只作用于已软删的用户，恢复后状态重置为 active
func (r *UserRepo) Restore(ctx context.Context, id uint) (*domain.User, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m access.UserModel
		if err := tx.Unscoped().Where("deleted_at IS NOT NULL").First(&m, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Unscoped().Model(&m).Updates(map[string]any{
			"deleted_at": nil,
			"status":     string(domain.StatusActive),
		}).Error
	})
	if err != nil {
		return nil, translate(err, id, "restore user failed")
	}
	return r.FindByID(ctx, id, true)
}

func (r *UserRepo) SetStatus(ctx context.Context, id uint, status domain.UserStatus) (*domain.User, error) {
	return r.updateColumn(ctx, id, "status", string(status), "mark user failed")
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id uint, passwordHash string) (*domain.User, error) {
	return r.updateColumn(ctx, id, "password_hash", passwordHash, "update password failed")
}

// 先查再写：MySQL 对未变化的行 RowsAffected 为 0，不能用来判断存在性
func (r *UserRepo) updateColumn(ctx context.Context, id uint, col string, val any, msg string) (*domain.User, error) {
	var m access.UserModel
	db := r.db.WithContext(ctx)
	if err := db.First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err, id, msg)
	}
	if err := db.Model(&m).Update(col, val).Error; err != nil {
		return nil, translate(err, id, msg)
	}
	return r.FindByID(ctx, id, false)
}

func assignRoles(tx *gorm.DB, userID uint, roleIDs []uint) error {
	if len(roleIDs) == 0 {
		return nil
	}
	rows := make([]access.AssignedRoleModel, 0, len(roleIDs))
	seen := make(map[uint]struct{}, len(roleIDs))
	for _, rid := range roleIDs {
		if _, dup := seen[rid]; dup {
			continue
		}
		seen[rid] = struct{}{}
		rows = append(rows, access.AssignedRoleModel{UserID: userID, RoleID: rid})
	}
	return tx.Create(&rows).Error
}

func orderRoles(db *gorm.DB) *gorm.DB { return db.Order("roles.sort ASC, roles.id ASC") }

func translate(err error, id uint, msg string) error {
	if de := domain.As(err); de != nil {
		return de
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound(id)
	}
	if isDupKey(err) {
		return domain.ValidationFailed(domain.FieldErrors{"email": {"the email has already been taken"}})
	}
	return domain.StoreFailure(msg, err)
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// 不同驱动的唯一冲突报错不一致，按文本兜底
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
