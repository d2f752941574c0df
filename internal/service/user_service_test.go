package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rbac-vault/internal/core/database"
	"rbac-vault/internal/domain"
	"rbac-vault/internal/feature/access"
	"rbac-vault/internal/repo"
	"rbac-vault/pkg/utils"
)

type fixture struct {
	db    *gorm.DB
	svc   *UserService
	admin access.RoleModel
	user  access.RoleModel
}

func setup(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	f := &fixture{db: db}
	f.admin = access.RoleModel{Name: "Administrator", Sort: 1, Active: true}
	f.user = access.RoleModel{Name: "User", Sort: 2, Active: true}
	require.NoError(t, db.Create(&f.admin).Error)
	require.NoError(t, db.Create(&f.user).Error)

	f.svc = NewUserService(repo.NewUserRepo(db), repo.NewRoleRepo(db), Options{}, nil)
	return f
}

func (f *fixture) countUsers(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Unscoped().Model(&access.UserModel{}).Count(&n).Error)
	return n
}

func (f *fixture) create(t *testing.T, name, email string, roles ...uint) *domain.User {
	t.Helper()
	u, err := f.svc.CreateUser(context.Background(), domain.UserFields{Name: name, Email: email, Password: "secret1"}, roles)
	require.NoError(t, err)
	return u
}

func kindOf(t *testing.T, err error) domain.Kind {
	t.Helper()
	require.Error(t, err)
	return domain.KindOf(err)
}

func TestCreateUser_Example(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, err := f.svc.CreateUser(ctx, domain.UserFields{Name: "A", Email: "a@x.com", Password: "p1"}, []uint{f.user.ID})
	require.NoError(t, err)
	assert.Equal(t, "A", u.Name)
	assert.Equal(t, []uint{f.user.ID}, u.RoleIDs())
	assert.Equal(t, domain.StatusActive, u.Status)
	assert.True(t, utils.CheckPassword("p1", u.PasswordHash))
}

func TestCreateUser_RoleSetMatchesRequest(t *testing.T) {
	f := setup(t)
	u, err := f.svc.CreateUser(context.Background(),
		domain.UserFields{Name: "A", Email: "a@x.com", Password: "p1"},
		[]uint{f.user.ID, f.admin.ID, f.user.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{f.admin.ID, f.user.ID}, u.RoleIDs())
}

func TestCreateUser_NoRoles(t *testing.T) {
	f := setup(t)
	for _, roles := range [][]uint{nil, {}} {
		_, err := f.svc.CreateUser(context.Background(), domain.UserFields{Name: "A", Email: "a@x.com", Password: "p1"}, roles)
		assert.Equal(t, domain.KindNoRoles, kindOf(t, err))
		assert.Zero(t, domain.As(err).UserID)
	}
	assert.Zero(t, f.countUsers(t))
}

func TestCreateUser_ValidationNeverWrites(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cases := map[string]struct {
		in    domain.UserFields
		field string
	}{
		"bad email":        {domain.UserFields{Name: "A", Email: "not-an-email", Password: "p1"}, "email"},
		"missing name":     {domain.UserFields{Email: "a@x.com", Password: "p1"}, "name"},
		"missing email":    {domain.UserFields{Name: "A", Password: "p1"}, "email"},
		"missing password": {domain.UserFields{Name: "A", Email: "a@x.com"}, "password"},
		"confirmation":     {domain.UserFields{Name: "A", Email: "a@x.com", Password: "p1", PasswordConfirmation: "p2"}, "password"},
		"bad status":       {domain.UserFields{Name: "A", Email: "a@x.com", Password: "p1", Status: "banned"}, "status"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateUser(ctx, tc.in, []uint{f.user.ID})
			require.Equal(t, domain.KindValidation, kindOf(t, err))
			assert.NotEmpty(t, domain.As(err).Fields[tc.field])
		})
	}
	assert.Zero(t, f.countUsers(t))
}

func TestCreateUser_DuplicateEmailAndUnknownRole(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.create(t, "A", "a@x.com", f.user.ID)

	_, err := f.svc.CreateUser(ctx, domain.UserFields{Name: "B", Email: "A@X.com", Password: "p1"}, []uint{f.user.ID})
	require.Equal(t, domain.KindValidation, kindOf(t, err))
	assert.Equal(t, []string{"the email has already been taken"}, domain.As(err).Fields["email"])

	_, err = f.svc.CreateUser(ctx, domain.UserFields{Name: "C", Email: "c@x.com", Password: "p1"}, []uint{999})
	require.Equal(t, domain.KindValidation, kindOf(t, err))
	assert.NotEmpty(t, domain.As(err).Fields["assignees_roles"])
	assert.EqualValues(t, 1, f.countUsers(t))
}

func TestCreateUser_Deactivated(t *testing.T) {
	f := setup(t)
	u, err := f.svc.CreateUser(context.Background(),
		domain.UserFields{Name: "A", Email: "a@x.com", Password: "p1", Status: domain.StatusDeactivated},
		[]uint{f.user.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeactivated, u.Status)
}

func TestGetUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.create(t, "A", "a@x.com", f.admin.ID)

	got, err := f.svc.GetUser(ctx, u.ID, true)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.admin.ID}, got.RoleIDs())

	_, err = f.svc.GetUser(ctx, u.ID+100, false)
	assert.Equal(t, domain.KindNotFound, kindOf(t, err))
	assert.Equal(t, u.ID+100, domain.As(err).ID)
}

func TestUpdateUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.create(t, "A", "a@x.com", f.user.ID)
	other := f.create(t, "B", "b@x.com", f.user.ID)

	up, err := f.svc.UpdateUser(ctx, u.ID, domain.UserFields{Name: "A2", Email: "a@x.com"}, []uint{f.admin.ID, f.user.ID})
	require.NoError(t, err)
	assert.Equal(t, "A2", up.Name)
	assert.ElementsMatch(t, []uint{f.admin.ID, f.user.ID}, up.RoleIDs())
	assert.True(t, utils.CheckPassword("secret1", up.PasswordHash), "password kept when not given")

	up, err = f.svc.UpdateUser(ctx, u.ID, domain.UserFields{Name: "A2", Email: "a@x.com", Password: "changed", PasswordConfirmation: "changed"}, []uint{f.user.ID})
	require.NoError(t, err)
	assert.True(t, utils.CheckPassword("changed", up.PasswordHash))

	// 邮箱被别人占用
	_, err = f.svc.UpdateUser(ctx, u.ID, domain.UserFields{Name: "A2", Email: other.Email}, []uint{f.user.ID})
	assert.Equal(t, domain.KindValidation, kindOf(t, err))

	// 编辑时清空角色：带上用户 id，方便回到编辑页
	_, err = f.svc.UpdateUser(ctx, u.ID, domain.UserFields{Name: "A2", Email: "a@x.com"}, nil)
	require.Equal(t, domain.KindNoRoles, kindOf(t, err))
	assert.Equal(t, u.ID, domain.As(err).UserID)

	got, err := f.svc.GetUser(ctx, u.ID, true)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.user.ID}, got.RoleIDs())
}

func TestUpdateUser_BadInputNeverWrites(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.create(t, "A", "a@x.com", f.user.ID)

	_, err := f.svc.UpdateUser(ctx, u.ID, domain.UserFields{Name: "", Email: "broken"}, []uint{f.admin.ID})
	require.Equal(t, domain.KindValidation, kindOf(t, err))
	fields := domain.As(err).Fields
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")

	got, err := f.svc.GetUser(ctx, u.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
	assert.Equal(t, []uint{f.user.ID}, got.RoleIDs())
}

func TestMissingUserIsNotFound(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	const missing = uint(12345)
	valid := domain.UserFields{Name: "A", Email: "a@x.com"}

	_, err := f.svc.GetUser(ctx, missing, true)
	assert.Equal(t, domain.KindNotFound, kindOf(t, err))
	_, err = f.svc.UpdateUser(ctx, missing, valid, []uint{f.user.ID})
	assert.Equal(t, domain.KindNotFound, kindOf(t, err))
	assert.Equal(t, domain.KindNotFound, kindOf(t, f.svc.DestroyUser(ctx, missing)))
	assert.Equal(t, domain.KindNotFound, kindOf(t, f.svc.DeleteUserPermanently(ctx, missing)))
	_, err = f.svc.RestoreUser(ctx, missing)
	assert.Equal(t, domain.KindNotFound, kindOf(t, err))
	_, err = f.svc.MarkUser(ctx, missing, domain.StatusDeactivated)
	assert.Equal(t, domain.KindNotFound, kindOf(t, err))
	_, err = f.svc.UpdatePassword(ctx, missing, domain.PasswordFields{Password: "x", PasswordConfirmation: "x"})
	assert.Equal(t, domain.KindNotFound, kindOf(t, err))

	assert.Zero(t, f.countUsers(t))
}

func TestMarkUser_Example(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.create(t, "A", "a@x.com", f.user.ID)

	got, err := f.svc.MarkUser(ctx, u.ID, domain.StatusDeactivated)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeactivated, got.Status)

	active, err := f.svc.ListActive(ctx, 0, 1)
	require.NoError(t, err)
	assert.Empty(t, active.Items)

	deactivated, err := f.svc.ListDeactivated(ctx, 1)
	require.NoError(t, err)
	require.Len(t, deactivated.Items, 1)
	assert.Equal(t, u.ID, deactivated.Items[0].ID)
	assert.Equal(t, 25, deactivated.PerPage)

	got, err = f.svc.MarkUser(ctx, u.ID, domain.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, got.Status)

	_, err = f.svc.MarkUser(ctx, u.ID, "banned")
	assert.Equal(t, domain.KindValidation, kindOf(t, err))
}

func TestDestroyRestoreRoundTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.create(t, "A", "a@x.com", f.user.ID)
	_, err := f.svc.MarkUser(ctx, u.ID, domain.StatusDeactivated)
	require.NoError(t, err)

	require.NoError(t, f.svc.DestroyUser(ctx, u.ID))
	_, err = f.svc.GetUser(ctx, u.ID, false)
	assert.Equal(t, domain.KindNotFound, kindOf(t, err))

	deleted, err := f.svc.ListDeleted(ctx, 1)
	require.NoError(t, err)
	require.Len(t, deleted.Items, 1)
	assert.True(t, deleted.Items[0].Deleted)

	restored, err := f.svc.RestoreUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, restored.Status)
	assert.False(t, restored.Deleted)
	assert.Equal(t, []uint{f.user.ID}, restored.RoleIDs())

	deleted, err = f.svc.ListDeleted(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, deleted.Items)
}

func TestDeletePermanently(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.create(t, "A", "a@x.com", f.user.ID)

	require.NoError(t, f.svc.DeleteUserPermanently(ctx, u.ID))
	_, err := f.svc.GetUser(ctx, u.ID, false)
	assert.Equal(t, domain.KindNotFound, kindOf(t, err))
	_, err = f.svc.RestoreUser(ctx, u.ID)
	assert.Equal(t, domain.KindNotFound, kindOf(t, err))
	assert.Zero(t, f.countUsers(t))
}

func TestUpdatePassword(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.create(t, "A", "a@x.com", f.user.ID)

	_, err := f.svc.UpdatePassword(ctx, u.ID, domain.PasswordFields{Password: "n3w", PasswordConfirmation: "other"})
	require.Equal(t, domain.KindValidation, kindOf(t, err))
	assert.Contains(t, domain.As(err).Fields, "password")

	_, err = f.svc.UpdatePassword(ctx, u.ID, domain.PasswordFields{Password: "n3w"})
	require.Equal(t, domain.KindValidation, kindOf(t, err))
	assert.Contains(t, domain.As(err).Fields, "password_confirmation")

	got, err := f.svc.UpdatePassword(ctx, u.ID, domain.PasswordFields{Password: "n3w", PasswordConfirmation: "n3w"})
	require.NoError(t, err)
	assert.True(t, utils.CheckPassword("n3w", got.PasswordHash))
}

func TestListActivePaging(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.create(t, fmt.Sprintf("U%d", i), fmt.Sprintf("u%d@x.com", i), f.user.ID)
	}

	p, err := f.svc.ListActive(ctx, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, p.Total)
	assert.Len(t, p.Items, 1)

	p, err = f.svc.ListActive(ctx, 1000, 1)
	require.NoError(t, err)
	assert.Equal(t, 100, p.PerPage)

	p, err = f.svc.ListActive(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, p.PerPage)
}

func TestRolesForForm(t *testing.T) {
	f := setup(t)
	retired := access.RoleModel{Name: "Retired", Sort: 0, Active: false}
	require.NoError(t, f.db.Create(&retired).Error)

	roles, err := f.svc.RolesForForm(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, f.admin.ID, roles[0].ID)
	assert.Equal(t, f.user.ID, roles[1].ID)
}

func TestAuthenticate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.create(t, "A", "a@x.com", f.admin.ID)

	got, err := f.svc.Authenticate(ctx, " A@x.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, []uint{f.admin.ID}, got.RoleIDs())

	_, err = f.svc.Authenticate(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Authenticate(ctx, "nobody@x.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.MarkUser(ctx, u.ID, domain.StatusDeactivated)
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, "a@x.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordLimitCountsBytes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	long := strings.Repeat("é", 40) // 40 个字符，80 字节

	_, err := f.svc.CreateUser(ctx, domain.UserFields{Name: "A", Email: "a@x.com", Password: long}, []uint{f.user.ID})
	require.Equal(t, domain.KindValidation, kindOf(t, err))
	assert.Contains(t, domain.As(err).Fields, "password")
	assert.EqualValues(t, 0, f.countUsers(t))

	u := f.create(t, "B", "b@x.com", f.user.ID)
	_, err = f.svc.UpdateUser(ctx, u.ID, domain.UserFields{Name: "B", Email: "b@x.com", Password: long}, []uint{f.user.ID})
	require.Equal(t, domain.KindValidation, kindOf(t, err))
	assert.Contains(t, domain.As(err).Fields, "password")

	_, err = f.svc.UpdatePassword(ctx, u.ID, domain.PasswordFields{Password: long, PasswordConfirmation: long})
	require.Equal(t, domain.KindValidation, kindOf(t, err))
	assert.Contains(t, domain.As(err).Fields, "password")

	// 72 字节以内的多字节密码可以用
	ok := strings.Repeat("é", 36)
	_, err = f.svc.UpdatePassword(ctx, u.ID, domain.PasswordFields{Password: ok, PasswordConfirmation: ok})
	require.NoError(t, err)
}

func TestHashPasswordTooLongIsValidation(t *testing.T) {
	_, err := hashPassword(strings.Repeat("x", 73))
	require.Equal(t, domain.KindValidation, kindOf(t, err))
	assert.Contains(t, domain.As(err).Fields, "password")
}

func TestListClampsPage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.create(t, "A", "a@x.com", f.user.ID)

	p, err := f.svc.ListActive(ctx, 10, math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32/10, p.Page)
	assert.Empty(t, p.Items)
	assert.EqualValues(t, 1, p.Total)

	p, err = f.svc.ListDeleted(ctx, -5)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
}

func TestAuthenticateMasksEmailInLogs(t *testing.T) {
	f := setup(t)
	core, logs := observer.New(zapcore.InfoLevel)
	svc := NewUserService(repo.NewUserRepo(f.db), repo.NewRoleRepo(f.db), Options{}, zap.New(core))

	_, err := svc.Authenticate(context.Background(), "nobody@x.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "n***@x.com", logs.All()[0].ContextMap()["email"])
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a***@x.com", maskEmail("alice@x.com"))
	assert.Equal(t, "***", maskEmail("no-at-sign"))
	assert.Equal(t, "***", maskEmail("@x.com"))
}
