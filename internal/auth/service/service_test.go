package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"vras/internal/auth/models"
	"vras/internal/auth/store/revocation"
	userStore "vras/internal/auth/store/user"
	"vras/internal/sentinel"
	tenantModels "vras/internal/tenant/models"
	id "vras/pkg/domain"
	dErrors "vras/pkg/domain-errors"
)

type tenantStoreStub struct {
	tenants map[id.TenantID]*tenantModels.Tenant
	plans   map[id.SubscriptionID]*tenantModels.Subscription
}

func (s *tenantStoreStub) FindByID(_ context.Context, tenantID id.TenantID) (*tenantModels.Tenant, error) {
	if t, ok := s.tenants[tenantID]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("tenant not found: %w", sentinel.ErrNotFound)
}

func (s *tenantStoreStub) FindSubscriptionByID(_ context.Context, subscriptionID id.SubscriptionID) (*tenantModels.Subscription, error) {
	if p, ok := s.plans[subscriptionID]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("subscription not found: %w", sentinel.ErrNotFound)
}

type mailerStub struct {
	sent []string
}

func (m *mailerStub) Send(_ context.Context, to, subject, _ string) error {
	m.sent = append(m.sent, to+": "+subject)
	return nil
}

type fixture struct {
	svc        *Service
	users      *userStore.InMemoryStore
	tenants    *tenantStoreStub
	revocation *revocation.InMemoryList
	mailer     *mailerStub
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		users: userStore.New(),
		tenants: &tenantStoreStub{
			tenants: map[id.TenantID]*tenantModels.Tenant{},
			plans:   map[id.SubscriptionID]*tenantModels.Subscription{},
		},
		revocation: revocation.NewInMemory(),
		mailer:     &mailerStub{},
	}
	base := []Option{
		WithBcryptCost(bcrypt.MinCost),
		WithMailer(f.mailer),
	}
	f.svc = NewService(f.users, f.tenants, f.revocation, append(base, opts...)...)
	return f
}

func (f *fixture) addTenant(t *testing.T, tenantID id.TenantID, endAt time.Time, status tenantModels.TenantStatus) {
	t.Helper()
	f.tenants.tenants[tenantID] = &tenantModels.Tenant{
		ID:     tenantID,
		Slug:   fmt.Sprintf("tenant-%d", tenantID.Int64()),
		Name:   "Range Co",
		Email:  "ops@range.example",
		EndAt:  endAt,
		Status: status,
	}
}

func (f *fixture) addUser(t *testing.T, tenantID id.TenantID, role models.Role, username, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u, err := models.NewUser(tenantID, role, "Alice", username, username+"@example.com", "055"+username, string(hash), time.Now())
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func TestSecondLoginInvalidatesFirstToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTenant(t, 1, time.Now().AddDate(1, 0, 0), tenantModels.TenantStatusActive)
	f.addUser(t, 1, models.RoleUser, "alice", "secret")

	first, err := f.svc.LoginTenant(ctx, "alice", "secret", "")
	require.NoError(t, err)
	second, err := f.svc.LoginTenant(ctx, "alice", "secret", "")
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)

	_, err = f.users.FindBySessionToken(ctx, first.Token)
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "first token must stop resolving")
	resolved, err := f.users.FindBySessionToken(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, second.User.ID, resolved.ID)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTenant(t, 1, time.Now().AddDate(1, 0, 0), tenantModels.TenantStatusActive)
	f.addUser(t, 1, models.RoleUser, "alice", "secret")

	_, unknownErr := f.svc.LoginTenant(ctx, "nobody", "secret", "")
	_, wrongErr := f.svc.LoginTenant(ctx, "alice", "not-the-password", "")

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, dErrors.FieldsOf(unknownErr), dErrors.FieldsOf(wrongErr))
	assert.Equal(t,
		dErrors.FieldError{Message: "Invalid credentials.", Rule: "same"},
		dErrors.FieldsOf(unknownErr)["username"])
}

func TestLoginIdentifierVariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTenant(t, 1, time.Now().AddDate(1, 0, 0), tenantModels.TenantStatusActive)
	f.addUser(t, 1, models.RoleUser, "alice", "secret")

	for _, identifier := range []string{"alice", "alice@example.com", "055alice"} {
		res, err := f.svc.LoginTenant(ctx, identifier, "secret", "")
		require.NoError(t, err, identifier)
		assert.NotEmpty(t, res.Token)
	}
}

func TestTenantGateBlocksLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("expired subscription", func(t *testing.T) {
		f := newFixture(t)
		f.addTenant(t, 1, time.Now(), tenantModels.TenantStatusActive) // window ends today
		f.addUser(t, 1, models.RoleUser, "alice", "secret")

		_, err := f.svc.LoginTenant(ctx, "alice", "secret", "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeSubscriptionExpired))
		assert.Equal(t, "Subscription expired. Please renew.", dErrors.FieldsOf(err)["username"].Message)
	})

	t.Run("inactive tenant", func(t *testing.T) {
		f := newFixture(t)
		f.addTenant(t, 1, time.Now().AddDate(1, 0, 0), tenantModels.TenantStatusInactive)
		f.addUser(t, 1, models.RoleUser, "alice", "secret")

		_, err := f.svc.LoginTenant(ctx, "alice", "secret", "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTenantInactive))
		assert.Equal(t, "Client inactive. Contact Super-Admin.", dErrors.FieldsOf(err)["username"].Message)
	})

	t.Run("admin login skips the gate", func(t *testing.T) {
		f := newFixture(t)
		f.addUser(t, 0, models.RoleAdmin, "root", "secret")

		res, err := f.svc.LoginAdmin(ctx, "root", "secret", "")
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
	})
}

func TestLoginScopeSeparation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTenant(t, 1, time.Now().AddDate(1, 0, 0), tenantModels.TenantStatusActive)
	f.addUser(t, 1, models.RoleUser, "alice", "secret")
	f.addUser(t, 0, models.RoleAdmin, "root", "secret")

	_, err := f.svc.LoginAdmin(ctx, "alice", "secret", "")
	assert.Error(t, err, "tenant principal must not pass the admin form")

	_, err = f.svc.LoginTenant(ctx, "root", "secret", "")
	assert.Error(t, err, "admin must not pass the tenant form")
}

func TestLoginRecordsDeviceName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTenant(t, 1, time.Now().AddDate(1, 0, 0), tenantModels.TenantStatusActive)
	f.addUser(t, 1, models.RoleUser, "alice", "secret")

	const chromeUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	res, err := f.svc.LoginTenant(ctx, "alice", "secret", chromeUA)
	require.NoError(t, err)
	assert.Contains(t, res.User.DeviceName, "Chrome")
	assert.Contains(t, res.User.DeviceName, " on ")
}

func TestLoginRateLimit(t *testing.T) {
	f := newFixture(t, WithLoginRateLimit(1, 2))
	ctx := context.Background()

	_, err := f.svc.LoginTenant(ctx, "alice", "x", "")
	assert.False(t, dErrors.HasCode(err, dErrors.CodeRateLimited))
	_, err = f.svc.LoginTenant(ctx, "alice", "x", "")
	assert.False(t, dErrors.HasCode(err, dErrors.CodeRateLimited))

	_, err = f.svc.LoginTenant(ctx, "alice", "x", "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited), "burst exhausted")

	// other identifiers keep their own budget
	_, err = f.svc.LoginTenant(ctx, "bob", "x", "")
	assert.False(t, dErrors.HasCode(err, dErrors.CodeRateLimited))
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTenant(t, 1, time.Now().AddDate(1, 0, 0), tenantModels.TenantStatusActive)
	f.addUser(t, 1, models.RoleUser, "alice", "secret")

	res, err := f.svc.LoginTenant(ctx, "alice", "secret", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, res.User))

	revoked, err := f.revocation.IsRevoked(ctx, res.Token)
	require.NoError(t, err)
	assert.True(t, revoked)

	stored, err := f.users.FindByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.SessionToken)
	assert.Empty(t, stored.PairingCode)
}

func TestPairingLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTenant(t, 1, time.Now().AddDate(1, 0, 0), tenantModels.TenantStatusActive)

	t.Run("keeps the live token", func(t *testing.T) {
		u := f.addUser(t, 1, models.RoleUser, "alice", "secret")
		login, err := f.svc.LoginTenant(ctx, "alice", "secret", "")
		require.NoError(t, err)

		code, err := f.svc.IssuePairingCode(ctx, login.User)
		require.NoError(t, err)

		res, err := f.svc.LoginPairing(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, u.ID, res.User.ID)
		assert.Equal(t, login.Token, res.Token, "pairing reuses the browser session token")
	})

	t.Run("issues a token when none is live", func(t *testing.T) {
		u := f.addUser(t, 1, models.RoleUser, "bob", "secret")
		u.PairingCode = "4321"
		require.NoError(t, f.users.Update(ctx, u))

		res, err := f.svc.LoginPairing(ctx, "4321")
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := f.svc.LoginPairing(ctx, "0000")
		require.Error(t, err)
		assert.Equal(t, "Invalid credentials.", dErrors.FieldsOf(err)["code"].Message)
	})
}

func TestIssuePairingCodeDiffersFromCurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTenant(t, 1, time.Now().AddDate(1, 0, 0), tenantModels.TenantStatusActive)
	u := f.addUser(t, 1, models.RoleUser, "alice", "secret")
	u.PairingCode = "1234"
	require.NoError(t, f.users.Update(ctx, u))

	code, err := f.svc.IssuePairingCode(ctx, u)
	require.NoError(t, err)
	assert.Len(t, code, 4)
	assert.NotEqual(t, "1234", code)

	stored, err := f.users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, code, stored.PairingCode)
}

func TestForgotThenResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTenant(t, 1, time.Now().AddDate(1, 0, 0), tenantModels.TenantStatusActive)
	u := f.addUser(t, 1, models.RoleUser, "alice", "secret")

	require.NoError(t, f.svc.ForgotPassword(ctx, "alice@example.com", false))
	assert.Len(t, f.mailer.sent, 1)

	stored, err := f.users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.ResetCode)
	code := stored.ResetCode

	require.NoError(t, f.svc.ResetPassword(ctx, "alice@example.com", code, "brand-new", false))

	_, err = f.svc.LoginTenant(ctx, "alice", "secret", "")
	assert.Error(t, err, "old password must stop working")
	_, err = f.svc.LoginTenant(ctx, "alice", "brand-new", "")
	assert.NoError(t, err)

	// reset codes are single-use
	err = f.svc.ResetPassword(ctx, "alice@example.com", code, "another", false)
	assert.Error(t, err)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ForgotPassword(context.Background(), "nobody@example.com", false)
	require.Error(t, err)
	assert.Equal(t, "Email not found.", dErrors.FieldsOf(err)["email"].Message)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTenant(t, 1, time.Now().AddDate(1, 0, 0), tenantModels.TenantStatusActive)
	f.addUser(t, 1, models.RoleUser, "alice", "secret")

	res, err := f.svc.LoginTenant(ctx, "alice", "secret", "")
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, res.User, "wrong", "next")
	require.Error(t, err)
	assert.Equal(t, "Current password is incorrect.", dErrors.FieldsOf(err)["current_password"].Message)

	require.NoError(t, f.svc.ChangePassword(ctx, res.User, "secret", "next"))
	_, err = f.svc.LoginTenant(ctx, "alice", "next", "")
	assert.NoError(t, err)
}

func TestCreateUserUniquenessAndCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTenant(t, 1, time.Now().AddDate(1, 0, 0), tenantModels.TenantStatusActive)
	f.tenants.tenants[1].SubscriptionID = 7
	f.tenants.plans[7] = &tenantModels.Subscription{ID: 7, Name: "starter", UserCap: 2}
	f.addUser(t, 1, models.RoleUser, "alice", "secret")

	_, err := f.svc.CreateUser(ctx, 1, UserInput{
		Name: "Dup", Username: "alice", Email: "fresh@example.com", Mobile: "0559999", Password: "pw",
	})
	require.Error(t, err)
	assert.Equal(t, "unique", dErrors.FieldsOf(err)["username"].Rule)

	created, err := f.svc.CreateUser(ctx, 1, UserInput{
		Name: "Bob", Username: "bob", Email: "bob@example.com", Mobile: "0551111", Password: "pw",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = f.svc.CreateUser(ctx, 1, UserInput{
		Name: "Carol", Username: "carol", Email: "carol@example.com", Mobile: "0552222", Password: "pw",
	})
	require.Error(t, err, "user cap of 2 reached")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestDeleteUserRevokesLiveToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTenant(t, 1, time.Now().AddDate(1, 0, 0), tenantModels.TenantStatusActive)
	f.addUser(t, 1, models.RoleUser, "alice", "secret")

	res, err := f.svc.LoginTenant(ctx, "alice", "secret", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteUser(ctx, 1, res.User.ID))

	revoked, err := f.revocation.IsRevoked(ctx, res.Token)
	require.NoError(t, err)
	assert.True(t, revoked)
}
