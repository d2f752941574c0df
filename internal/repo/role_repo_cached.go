package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rbac-vault/internal/core/cache"
	"rbac-vault/internal/domain"
)

// CachedRoleRepo 角色表很少变化，表单用的角色列表走 redis
type CachedRoleRepo struct {
	next  domain.RoleStore
	cache *cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachedRoleRepo(next domain.RoleStore, c *cache.Cache, ttl time.Duration, l *zap.Logger) *CachedRoleRepo {
	if l == nil {
		l = zap.NewNop()
	}
	return &CachedRoleRepo{next: next, cache: c, ttl: ttl, log: l}
}

var _ domain.RoleStore = (*CachedRoleRepo)(nil)

func rolesKey(sortField, sortDir string, activeOnly bool) string {
	return fmt.Sprintf("roles:%s:%s:%t", strings.ToLower(sortField), strings.ToLower(sortDir), activeOnly)
}

func (r *CachedRoleRepo) ListAll(ctx context.Context, sortField, sortDir string, activeOnly bool) ([]domain.Role, error) {
	key := rolesKey(sortField, sortDir, activeOnly)
	roles, err := cache.GetOrLoadJSON(ctx, r.cache, key, r.ttl, func(ctx context.Context) ([]domain.Role, error) {
		return r.next.ListAll(ctx, sortField, sortDir, activeOnly)
	})
	if err != nil {
		r.log.Warn("list roles failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	if roles == nil {
		return []domain.Role{}, nil
	}
	return roles, nil
}

// FindByIDs 用于写路径校验，不走缓存
func (r *CachedRoleRepo) FindByIDs(ctx context.Context, ids []uint) ([]domain.Role, error) {
	return r.next.FindByIDs(ctx, ids)
}

// Invalidate 角色变更后清掉对应排序的缓存（启用 / 全部两份）
func (r *CachedRoleRepo) Invalidate(ctx context.Context, sortField, sortDir string) error {
	return r.cache.Invalidate(ctx, rolesKey(sortField, sortDir, true), rolesKey(sortField, sortDir, false))
}
