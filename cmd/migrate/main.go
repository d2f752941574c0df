package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbac-vault/internal/core/cache"
	"rbac-vault/internal/core/config"
	"rbac-vault/internal/core/database"
	"rbac-vault/internal/core/logger"
	"rbac-vault/internal/domain"
	"rbac-vault/internal/repo"
	"rbac-vault/internal/service"
)

// 建表 + 写入默认角色；设置 VAULT_ADMIN_EMAIL / VAULT_ADMIN_PASSWORD 时顺带建一个管理员
func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db := mustOpenDB(cfg, log)
	if err := database.Migrate(db); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}
	log.Info("migrate done")

	roles, err := repo.SeedRoles(ctx, db, repo.DefaultRoles...)
	if err != nil {
		log.Fatal("seed roles failed", zap.Error(err))
	}
	log.Info("roles seeded", zap.Int("count", len(roles)))

	if cfg.Redis.Addr != "" {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		c.Prefix = cfg.App.Name + ":"
		cached := repo.NewCachedRoleRepo(repo.NewRoleRepo(db), c, 0, log)
		if err := cached.Invalidate(ctx, cfg.Vault.Roles.SortField, cfg.Vault.Roles.SortDir); err != nil {
			log.Warn("role cache invalidate failed", zap.Error(err))
		}
	}

	email := os.Getenv("VAULT_ADMIN_EMAIL")
	password := os.Getenv("VAULT_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}
	name := os.Getenv("VAULT_ADMIN_NAME")
	if name == "" {
		name = "Administrator"
	}
	var adminID uint
	for _, r := range roles {
		if r.Name == cfg.Vault.AdminRole {
			adminID = r.ID
		}
	}
	if adminID == 0 {
		log.Fatal("admin role not seeded", zap.String("role", cfg.Vault.AdminRole))
	}

	svc := service.NewUserService(repo.NewUserRepo(db), repo.NewRoleRepo(db), service.OptionsFromConfig(cfg.Vault), log)
	u, err := svc.CreateUser(ctx, domain.UserFields{Name: name, Email: email, Password: password}, []uint{adminID})
	switch {
	case err == nil:
		log.Info("admin created", zap.Uint("user_id", u.ID), zap.String("email", u.Email))
	case domain.KindOf(err) == domain.KindValidation:
		// 已存在时 email 唯一校验会失败，视为已初始化
		log.Warn("admin not created", zap.Any("errors", domain.As(err).Fields))
	default:
		log.Fatal("create admin failed", zap.Error(err))
	}
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:   cfg.DB.Driver,
		DSN:      cfg.DB.DSN,
		Username: cfg.DB.Username,
		Password: cfg.DB.Password,
		LogLevel: cfg.DB.LogLevel,
		Log:      l,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
