package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	authModels "vras/internal/auth/models"
	"vras/internal/sentinel"
	"vras/internal/tenant/metrics"
	"vras/internal/tenant/models"
	id "vras/pkg/domain"
	dErrors "vras/pkg/domain-errors"
	s "vras/pkg/string"
)

// TenantStore defines the persistence interface for tenants and subscription
// plans. Error Contract: Find methods return sentinel.ErrNotFound (wrapped)
// when the entity doesn't exist.
type TenantStore interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	Update(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	List(ctx context.Context) ([]*models.Tenant, error)
	ExistsIdentifier(ctx context.Context, slug, email string, exclude id.TenantID) (map[string]bool, error)
	Delete(ctx context.Context, tenantID id.TenantID) error
	CreateSubscription(ctx context.Context, plan *models.Subscription) error
	UpdateSubscription(ctx context.Context, plan *models.Subscription) error
	FindSubscriptionByID(ctx context.Context, planID id.SubscriptionID) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]*models.Subscription, error)
	DeleteSubscription(ctx context.Context, planID id.SubscriptionID) error
}

// UserStore is the slice of the auth store registration writes the operator
// account through.
type UserStore interface {
	Create(ctx context.Context, user *authModels.User) error
	ExistsIdentifier(ctx context.Context, username, email, mobile string, exclude id.UserID) (map[string]bool, error)
}

// Mailer sends the registration welcome mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type Service struct {
	store      TenantStore
	users      UserStore
	logger     *slog.Logger
	metrics    *metrics.Metrics
	mailer     Mailer
	bcryptCost int
	now        func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(svc *Service) {
		svc.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(svc *Service) {
		svc.metrics = m
	}
}

func WithMailer(mailer Mailer) Option {
	return func(svc *Service) {
		svc.mailer = mailer
	}
}

func WithBcryptCost(cost int) Option {
	return func(svc *Service) {
		if cost > 0 {
			svc.bcryptCost = cost
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		svc.now = now
	}
}

func NewService(store TenantStore, users UserStore, opts ...Option) *Service {
	svc := &Service{
		store:      store,
		users:      users,
		bcryptCost: 10,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// RegisterInput carries a self-service signup: the client organisation plus
// its operator account in one shot.
type RegisterInput struct {
	CompanyName    string
	Email          string
	Mobile         string
	Address        string
	SubscriptionID id.SubscriptionID
	OperatorName   string
	Username       string
	Password       string
}

// Register creates a tenant with its subscription window and the operator
// user who manages it. Either both records land or neither is usable: the
// tenant is created first, and a user-create failure rolls it back with a
// soft delete.
func (svc *Service) Register(ctx context.Context, in RegisterInput) (*models.Tenant, *authModels.User, error) {
	slug := s.Slugify(in.CompanyName)
	if err := svc.checkTenantUnique(ctx, slug, in.Email, 0); err != nil {
		return nil, nil, err
	}
	if err := svc.checkOperatorUnique(ctx, in.Username, in.Email, in.Mobile); err != nil {
		return nil, nil, err
	}

	plan, err := svc.store.FindSubscriptionByID(ctx, in.SubscriptionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.NewField(dErrors.CodeNotFound, "subscription_id", "Unknown subscription plan.", "exists")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "subscription lookup")
	}

	now := svc.now()
	tenant, err := models.NewTenant(slug, in.CompanyName, in.Email, in.Mobile,
		plan.ID, now, now.AddDate(0, plan.DurationMonths, 0), now)
	if err != nil {
		return nil, nil, err
	}
	tenant.Address = in.Address
	if err := svc.store.Create(ctx, tenant); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "create tenant")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), svc.bcryptCost)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}
	operator, err := authModels.NewUser(tenant.ID, authModels.RoleOperator,
		in.OperatorName, in.Username, in.Email, in.Mobile, string(hash), now)
	if err != nil {
		return nil, nil, err
	}
	if err := svc.users.Create(ctx, operator); err != nil {
		if delErr := svc.store.Delete(ctx, tenant.ID); delErr != nil {
			svc.logger.Error("tenant rollback failed", "tenant_id", tenant.ID.Int64(), "error", delErr)
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "create operator")
	}

	if svc.metrics != nil {
		svc.metrics.IncrementTenantsRegistered()
	}
	if svc.mailer != nil {
		body := fmt.Sprintf("<p>Welcome %s,</p><p>Your account for <strong>%s</strong> is ready. Log in with username <strong>%s</strong>.</p>",
			in.OperatorName, in.CompanyName, in.Username)
		if err := svc.mailer.Send(ctx, in.Email, "Welcome aboard", body); err != nil {
			svc.logger.Error("welcome mail failed", "tenant_id", tenant.ID.Int64(), "error", err)
		}
	}
	svc.logger.Info("tenant registered", "tenant_id", tenant.ID.Int64(), "slug", slug)
	return tenant, operator, nil
}

// TenantInput carries admin-side tenant edits.
type TenantInput struct {
	Name           string
	Email          string
	Mobile         string
	Address        string
	SubscriptionID id.SubscriptionID
	StartAt        *time.Time
	EndAt          *time.Time
	PayStatus      models.PayStatus
	Status         models.TenantStatus
}

func (svc *Service) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	tenants, err := svc.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list tenants")
	}
	return tenants, nil
}

func (svc *Service) GetTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	tenant, err := svc.store.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Client not found.")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find tenant")
	}
	return tenant, nil
}

func (svc *Service) UpdateTenant(ctx context.Context, tenantID id.TenantID, in TenantInput) (*models.Tenant, error) {
	tenant, err := svc.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" && in.Name != tenant.Name {
		slug := s.Slugify(in.Name)
		if err := svc.checkTenantUnique(ctx, slug, "", tenantID); err != nil {
			return nil, err
		}
		tenant.Name = in.Name
		tenant.Slug = slug
	}
	if in.Email != "" && in.Email != tenant.Email {
		if err := svc.checkTenantUnique(ctx, "", in.Email, tenantID); err != nil {
			return nil, err
		}
		tenant.Email = in.Email
	}
	if in.Mobile != "" {
		tenant.Mobile = in.Mobile
	}
	if in.Address != "" {
		tenant.Address = in.Address
	}
	if in.SubscriptionID != 0 {
		plan, err := svc.store.FindSubscriptionByID(ctx, in.SubscriptionID)
		if err != nil {
			return nil, dErrors.NewField(dErrors.CodeNotFound, "subscription_id", "Unknown subscription plan.", "exists")
		}
		tenant.ExtendWindow(plan, svc.now())
	}
	if in.StartAt != nil {
		tenant.StartAt = *in.StartAt
	}
	if in.EndAt != nil {
		tenant.EndAt = *in.EndAt
	}
	if in.PayStatus != "" {
		tenant.PayStatus = in.PayStatus
	}
	if in.Status != "" && in.Status != models.TenantStatusDeleted {
		tenant.Status = in.Status
	}
	tenant.UpdatedAt = svc.now()

	if err := svc.store.Update(ctx, tenant); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update tenant")
	}
	return tenant, nil
}

func (svc *Service) DeleteTenant(ctx context.Context, tenantID id.TenantID) error {
	if err := svc.store.Delete(ctx, tenantID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "Client not found.")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete tenant")
	}
	svc.logger.Info("tenant deleted", "tenant_id", tenantID.Int64())
	return nil
}

// PlanInput carries subscription plan edits.
type PlanInput struct {
	Name           string
	Price          float64
	DurationMonths int
	UserCap        int
}

func (svc *Service) ListPlans(ctx context.Context) ([]*models.Subscription, error) {
	plans, err := svc.store.ListSubscriptions(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list subscriptions")
	}
	return plans, nil
}

func (svc *Service) GetPlan(ctx context.Context, planID id.SubscriptionID) (*models.Subscription, error) {
	plan, err := svc.store.FindSubscriptionByID(ctx, planID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Subscription not found.")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find subscription")
	}
	return plan, nil
}

func (svc *Service) CreatePlan(ctx context.Context, in PlanInput) (*models.Subscription, error) {
	now := svc.now()
	plan := &models.Subscription{
		Name:           in.Name,
		Price:          in.Price,
		DurationMonths: in.DurationMonths,
		UserCap:        in.UserCap,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := svc.store.CreateSubscription(ctx, plan); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create subscription")
	}
	return plan, nil
}

func (svc *Service) UpdatePlan(ctx context.Context, planID id.SubscriptionID, in PlanInput) (*models.Subscription, error) {
	plan, err := svc.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		plan.Name = in.Name
	}
	if in.Price != 0 {
		plan.Price = in.Price
	}
	if in.DurationMonths != 0 {
		plan.DurationMonths = in.DurationMonths
	}
	if in.UserCap != 0 {
		plan.UserCap = in.UserCap
	}
	plan.UpdatedAt = svc.now()
	if err := svc.store.UpdateSubscription(ctx, plan); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update subscription")
	}
	return plan, nil
}

func (svc *Service) DeletePlan(ctx context.Context, planID id.SubscriptionID) error {
	if err := svc.store.DeleteSubscription(ctx, planID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "Subscription not found.")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete subscription")
	}
	return nil
}

func (svc *Service) checkTenantUnique(ctx context.Context, slug, email string, exclude id.TenantID) error {
	taken, err := svc.store.ExistsIdentifier(ctx, slug, email, exclude)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "tenant uniqueness check")
	}
	if len(taken) == 0 {
		return nil
	}
	fields := make(map[string]dErrors.FieldError, len(taken))
	for field := range taken {
		name := field
		if field == "slug" {
			name = "company_name"
		}
		fields[name] = dErrors.FieldError{Message: "Already taken.", Rule: "unique"}
	}
	return &dErrors.Error{Code: dErrors.CodeConflict, Message: "validation", Fields: fields}
}

func (svc *Service) checkOperatorUnique(ctx context.Context, username, email, mobile string) error {
	taken, err := svc.users.ExistsIdentifier(ctx, username, email, mobile, 0)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "operator uniqueness check")
	}
	if len(taken) == 0 {
		return nil
	}
	fields := make(map[string]dErrors.FieldError, len(taken))
	for field := range taken {
		fields[field] = dErrors.FieldError{Message: "Already taken.", Rule: "unique"}
	}
	return &dErrors.Error{Code: dErrors.CodeConflict, Message: "validation", Fields: fields}
}
