package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"rbac-vault/internal/core/config"
	"rbac-vault/internal/domain"
	"rbac-vault/pkg/utils"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Options struct {
	DefaultPerPage     int
	DeactivatedPerPage int
	DeletedPerPage     int
	MaxPerPage         int
	RoleSortField      string
	RoleSortDir        string
}

func OptionsFromConfig(v config.Vault) Options {
	return Options{
		DefaultPerPage:     v.Users.DefaultPerPage,
		DeactivatedPerPage: v.Users.DeactivatedPerPage,
		DeletedPerPage:     v.Users.DeletedPerPage,
		MaxPerPage:         v.Users.MaxPerPage,
		RoleSortField:      v.Roles.SortField,
		RoleSortDir:        v.Roles.SortDir,
	}
}

func (o Options) withDefaults() Options {
	if o.DefaultPerPage <= 0 {
		o.DefaultPerPage = 10
	}
	if o.DeactivatedPerPage <= 0 {
		o.DeactivatedPerPage = 25
	}
	if o.DeletedPerPage <= 0 {
		o.DeletedPerPage = 25
	}
	if o.MaxPerPage <= 0 {
		o.MaxPerPage = 100
	}
	if o.RoleSortField == "" {
		o.RoleSortField = "id"
	}
	if o.RoleSortDir == "" {
		o.RoleSortDir = "asc"
	}
	return o
}

// UserService 用户管理：校验输入，委托给 UserStore / RoleStore，失败统一返回 *domain.Error
type UserService struct {
	users    domain.UserStore
	roles    domain.RoleStore
	opts     Options
	log      *zap.Logger
	validate *validator.Validate
}

func NewUserService(users domain.UserStore, roles domain.RoleStore, opts Options, l *zap.Logger) *UserService {
	if l == nil {
		l = zap.NewNop()
	}
	return &UserService{
		users:    users,
		roles:    roles,
		opts:     opts.withDefaults(),
		log:      l.Named("users"),
		validate: newValidator(),
	}
}

func (s *UserService) ListActive(ctx context.Context, perPage, page int) (*domain.UserPage, error) {
	if perPage <= 0 {
		perPage = s.opts.DefaultPerPage
	}
	perPage = min(perPage, s.opts.MaxPerPage)
	p, err := s.users.List(ctx, domain.ListQuery{Status: domain.StatusActive, PerPage: perPage, Page: clampPage(page, perPage)})
	return p, s.done("list_active", 0, err)
}

func (s *UserService) ListDeactivated(ctx context.Context, page int) (*domain.UserPage, error) {
	p, err := s.users.List(ctx, domain.ListQuery{Status: domain.StatusDeactivated, PerPage: s.opts.DeactivatedPerPage, Page: clampPage(page, s.opts.DeactivatedPerPage)})
	return p, s.done("list_deactivated", 0, err)
}

func (s *UserService) ListDeleted(ctx context.Context, page int) (*domain.UserPage, error) {
	p, err := s.users.List(ctx, domain.ListQuery{OnlyDeleted: true, PerPage: s.opts.DeletedPerPage, Page: clampPage(page, s.opts.DeletedPerPage)})
	return p, s.done("list_deleted", 0, err)
}

// RolesForForm 创建/编辑表单可选的角色
func (s *UserService) RolesForForm(ctx context.Context) ([]domain.Role, error) {
	rs, err := s.roles.ListAll(ctx, s.opts.RoleSortField, s.opts.RoleSortDir, true)
	return rs, s.done("roles_for_form", 0, err)
}

// CreateUser 角色在任何写入之前校验，所以 NoRolesAssigned 不会留下半成品用户（UserID 为 0）
func (s *UserService) CreateUser(ctx context.Context, in domain.UserFields, roleIDs []uint) (*domain.User, error) {
	in = normalize(in)
	fe := validateFields(s.validate, in)
	if in.Password == "" {
		fe.Add("password", "the password field is required")
	}
	if err := s.checkEmail(ctx, in.Email, 0, fe); err != nil {
		return nil, s.done("create", 0, err)
	}
	ids := uniqueIDs(roleIDs)
	if err := s.checkRoles(ctx, ids, fe); err != nil {
		return nil, s.done("create", 0, err)
	}
	if len(fe) > 0 {
		return nil, s.done("create", 0, domain.ValidationFailed(fe))
	}
	if len(ids) == 0 {
		return nil, s.done("create", 0, domain.NoRolesAssigned(0))
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, s.done("create", 0, err)
	}
	status := in.Status
	if status == "" {
		status = domain.StatusActive
	}
	u, err := s.users.Create(ctx, domain.NewUser{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Status:       status,
	}, ids)
	if err != nil {
		return nil, s.done("create", 0, err)
	}
	return u, s.done("create", u.ID, nil)
}

func (s *UserService) GetUser(ctx context.Context, id uint, withRoles bool) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, id, withRoles)
	return u, s.done("get", id, err)
}

func (s *UserService) UpdateUser(ctx context.Context, id uint, in domain.UserFields, roleIDs []uint) (*domain.User, error) {
	if _, err := s.users.FindByID(ctx, id, false); err != nil {
		return nil, s.done("update", id, err)
	}
	in = normalize(in)
	fe := validateFields(s.validate, in)
	if err := s.checkEmail(ctx, in.Email, id, fe); err != nil {
		return nil, s.done("update", id, err)
	}
	ids := uniqueIDs(roleIDs)
	if err := s.checkRoles(ctx, ids, fe); err != nil {
		return nil, s.done("update", id, err)
	}
	if len(fe) > 0 {
		return nil, s.done("update", id, domain.ValidationFailed(fe))
	}
	if len(ids) == 0 {
		return nil, s.done("update", id, domain.NoRolesAssigned(id))
	}

	ch := domain.UserChanges{Name: in.Name, Email: in.Email}
	if in.Password != "" {
		hash, err := hashPassword(in.Password)
		if err != nil {
			return nil, s.done("update", id, err)
		}
		ch.PasswordHash = hash
	}
	u, err := s.users.Update(ctx, id, ch, ids)
	return u, s.done("update", id, err)
}

// DestroyUser 软删，可 restore
func (s *UserService) DestroyUser(ctx context.Context, id uint) error {
	return s.done("destroy", id, s.users.SoftDelete(ctx, id))
}

// DeleteUserPermanently 物理删除，不可恢复
func (s *UserService) DeleteUserPermanently(ctx context.Context, id uint) error {
	return s.done("delete", id, s.users.HardDelete(ctx, id))
}

func (s *UserService) RestoreUser(ctx context.Context, id uint) (*domain.User, error) {
	u, err := s.users.Restore(ctx, id)
	return u, s.done("restore", id, err)
}

func (s *UserService) MarkUser(ctx context.Context, id uint, status domain.UserStatus) (*domain.User, error) {
	if !status.Valid() {
		err := domain.ValidationFailed(domain.FieldErrors{"status": {"the selected status is invalid"}})
		return nil, s.done("mark", id, err)
	}
	u, err := s.users.SetStatus(ctx, id, status)
	return u, s.done("mark", id, err)
}

func (s *UserService) UpdatePassword(ctx context.Context, id uint, in domain.PasswordFields) (*domain.User, error) {
	if _, err := s.users.FindByID(ctx, id, false); err != nil {
		return nil, s.done("update_password", id, err)
	}
	if fe := validateFields(s.validate, in); len(fe) > 0 {
		return nil, s.done("update_password", id, domain.ValidationFailed(fe))
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, s.done("update_password", id, err)
	}
	u, err := s.users.UpdatePassword(ctx, id, hash)
	return u, s.done("update_password", id, err)
}

// Authenticate 后台登录：仅 active 且未软删的用户
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, s.done("authenticate", 0, err)
	}
	if u == nil {
		utils.BurnCompare(password)
		s.log.Info("login rejected", zap.String("email", maskEmail(email)))
		return nil, ErrInvalidCredentials
	}
	ok := utils.CheckPassword(password, u.PasswordHash)
	if !ok || u.Deleted || u.Status != domain.StatusActive {
		s.log.Info("login rejected", zap.String("email", maskEmail(email)), zap.Uint("user_id", u.ID))
		return nil, ErrInvalidCredentials
	}
	return s.GetUser(ctx, u.ID, true)
}

func (s *UserService) checkEmail(ctx context.Context, email string, self uint, fe domain.FieldErrors) error {
	if email == "" || len(fe["email"]) > 0 {
		return nil
	}
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		fe.Add("email", "the email has already been taken")
	}
	return nil
}

func (s *UserService) checkRoles(ctx context.Context, ids []uint, fe domain.FieldErrors) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.roles.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	ok := make(map[uint]struct{}, len(found))
	for _, r := range found {
		ok[r.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, exists := ok[id]; !exists {
			fe.Add("assignees_roles", fmt.Sprintf("role %d does not exist", id))
		}
	}
	return nil
}

// done 记录结果（日志 + 指标），原样返回 err
func (s *UserService) done(op string, id uint, err error) error {
	observe(op, err)
	if err == nil {
		if op != "get" && !strings.HasPrefix(op, "list") && op != "roles_for_form" {
			s.log.Info("user "+op, zap.Uint("user_id", id))
		}
		return nil
	}
	fields := []zap.Field{zap.String("op", op), zap.Uint("user_id", id), zap.String("kind", string(domain.KindOf(err)))}
	if domain.KindOf(err) == domain.KindStoreFailure {
		s.log.Error("user operation failed", append(fields, zap.Error(err))...)
	} else {
		s.log.Warn("user operation rejected", append(fields, zap.Error(err))...)
	}
	if domain.As(err) == nil {
		return domain.StoreFailure(op+" failed", err)
	}
	return err
}

// hashPassword 超长密码按校验失败处理，其它 bcrypt 错误才是 store failure
func hashPassword(pw string) (string, error) {
	hash, err := utils.HashPassword(pw)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return "", domain.ValidationFailed(domain.FieldErrors{
			"password": {fmt.Sprintf("the password may not be greater than %d bytes", utils.MaxPasswordBytes)},
		})
	}
	if err != nil {
		return "", domain.StoreFailure("hash password failed", err)
	}
	return hash, nil
}

// maskEmail a***@x.com
func maskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// clampPage 页码限制在 [1, MaxInt32/perPage]，offset 不会溢出
func clampPage(page, perPage int) int {
	if page < 1 {
		return 1
	}
	if maxPage := math.MaxInt32 / max(perPage, 1); page > maxPage {
		return maxPage
	}
	return page
}

func normalize(in domain.UserFields) domain.UserFields {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	return in
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
