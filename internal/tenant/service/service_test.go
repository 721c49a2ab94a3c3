package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authModels "vras/internal/auth/models"
	userStore "vras/internal/auth/store/user"
	"vras/internal/tenant/models"
	"vras/internal/tenant/store"
	id "vras/pkg/domain"
	dErrors "vras/pkg/domain-errors"
)

type fixture struct {
	svc   *Service
	store *store.InMemoryStore
	users *userStore.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: store.New(),
		users: userStore.New(),
	}
	f.svc = NewService(f.store, f.users, WithBcryptCost(bcrypt.MinCost))
	return f
}

func (f *fixture) addPlan(t *testing.T, months, cap int) *models.Subscription {
	t.Helper()
	plan := &models.Subscription{Name: "starter", Price: 99, DurationMonths: months, UserCap: cap}
	require.NoError(t, f.store.CreateSubscription(context.Background(), plan))
	return plan
}

func registerInput(planID id.SubscriptionID) RegisterInput {
	return RegisterInput{
		CompanyName:    "Range Co",
		Email:          "ops@range.example",
		Mobile:         "0551112222",
		SubscriptionID: planID,
		OperatorName:   "Alice",
		Username:       "alice",
		Password:       "secret1",
	}
}

func TestRegisterCreatesTenantAndOperator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.addPlan(t, 12, 10)

	tenant, operator, err := f.svc.Register(ctx, registerInput(plan.ID))
	require.NoError(t, err)

	assert.Equal(t, "range-co", tenant.Slug)
	assert.Equal(t, models.TenantStatusActive, tenant.Status)
	assert.WithinDuration(t, time.Now().AddDate(0, 12, 0), tenant.EndAt, time.Minute,
		"window spans the plan duration")

	assert.Equal(t, tenant.ID, operator.TenantID)
	assert.Equal(t, authModels.RoleOperator, operator.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte("secret1")))

	stored, err := f.store.FindBySlug(ctx, "range-co")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, stored.ID)
}

func TestRegisterRejectsDuplicateCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.addPlan(t, 12, 10)

	_, _, err := f.svc.Register(ctx, registerInput(plan.ID))
	require.NoError(t, err)

	in := registerInput(plan.ID)
	in.Username = "other"
	in.Mobile = "0559998888"
	_, _, err = f.svc.Register(ctx, in)
	require.Error(t, err)
	fields := dErrors.FieldsOf(err)
	assert.Contains(t, fields, "company_name")
	assert.Contains(t, fields, "email")
}

func TestRegisterRejectsDuplicateOperator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.addPlan(t, 12, 10)

	_, _, err := f.svc.Register(ctx, registerInput(plan.ID))
	require.NoError(t, err)

	in := registerInput(plan.ID)
	in.CompanyName = "Other Co"
	in.Email = "other@range.example"
	_, _, err = f.svc.Register(ctx, in) // same username and mobile
	require.Error(t, err)
	assert.Equal(t, "unique", dErrors.FieldsOf(err)["username"].Rule)
}

func TestRegisterUnknownPlan(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.Register(context.Background(), registerInput(99))
	require.Error(t, err)
	assert.Contains(t, dErrors.FieldsOf(err), "subscription_id")
}

func TestUpdateTenantExtendsWindowOnPlanChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	starter := f.addPlan(t, 1, 5)
	annual := f.addPlan(t, 12, 50)

	tenant, _, err := f.svc.Register(ctx, registerInput(starter.ID))
	require.NoError(t, err)
	originalEnd := tenant.EndAt

	updated, err := f.svc.UpdateTenant(ctx, tenant.ID, TenantInput{SubscriptionID: annual.ID})
	require.NoError(t, err)
	assert.Equal(t, annual.ID, updated.SubscriptionID)
	assert.True(t, updated.EndAt.After(originalEnd), "window must extend")
}

func TestDeleteTenantIsSoft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.addPlan(t, 12, 10)
	tenant, _, err := f.svc.Register(ctx, registerInput(plan.ID))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteTenant(ctx, tenant.ID))

	_, err = f.svc.GetTenant(ctx, tenant.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	err = f.svc.DeleteTenant(ctx, tenant.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestPlanCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan, err := f.svc.CreatePlan(ctx, PlanInput{Name: "pro", Price: 199, DurationMonths: 6, UserCap: 25})
	require.NoError(t, err)
	require.NotZero(t, plan.ID)

	updated, err := f.svc.UpdatePlan(ctx, plan.ID, PlanInput{Price: 249})
	require.NoError(t, err)
	assert.Equal(t, 249.0, updated.Price)
	assert.Equal(t, "pro", updated.Name, "unset fields stay")

	plans, err := f.svc.ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 1)

	require.NoError(t, f.svc.DeletePlan(ctx, plan.ID))
	_, err = f.svc.GetPlan(ctx, plan.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
