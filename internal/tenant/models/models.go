package models

import (
	"time"

	id "vras/pkg/domain"
	dErrors "vras/pkg/domain-errors"
)

// TenantStatus is the client organisation lifecycle state.
type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "active"
	TenantStatusInactive TenantStatus = "inactive"
	TenantStatusDeleted  TenantStatus = "deleted"
)

// PayStatus tracks where the tenant stands in the billing cycle.
type PayStatus string

const (
	PayStatusPaid     PayStatus = "paid"
	PayStatusInitiate PayStatus = "initiate"
	PayStatusDue      PayStatus = "due"
)

// Tenant is a client organisation holding a subscription window. Every
// non-admin principal resolves through exactly one tenant, and the auth core
// consults the window and status at login time.
type Tenant struct {
	ID             id.TenantID
	Slug           string
	Name           string
	Email          string
	Mobile         string
	Address        string
	SubscriptionID id.SubscriptionID
	StartAt        time.Time
	EndAt          time.Time
	PayStatus      PayStatus
	Status         TenantStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subscription is a billing plan tenants subscribe to.
type Subscription struct {
	ID             id.SubscriptionID
	Name           string
	Price          float64
	DurationMonths int
	UserCap        int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanAuthenticate gates tenant-scoped logins. The subscription window closes
// at end of day: a window ending today already blocks login. Both failures
// surface as field errors on the login identifier, matching how the login
// form renders them.
func (t *Tenant) CanAuthenticate(today time.Time) error {
	if !dateOf(t.EndAt).After(dateOf(today)) {
		return dErrors.NewField(dErrors.CodeSubscriptionExpired, "username",
			"Subscription expired. Please renew.", "same")
	}
	if t.Status != TenantStatusActive {
		return dErrors.NewField(dErrors.CodeTenantInactive, "username",
			"Client inactive. Contact Super-Admin.", "same")
	}
	return nil
}

// ExtendWindow moves the subscription window forward by the plan duration,
// starting from the later of now and the current window end.
func (t *Tenant) ExtendWindow(plan *Subscription, now time.Time) {
	start := t.EndAt
	if start.Before(now) {
		start = now
	}
	t.StartAt = start
	t.EndAt = start.AddDate(0, plan.DurationMonths, 0)
	t.SubscriptionID = plan.ID
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NewTenant constructs a Tenant and enforces basic invariants.
func NewTenant(slug, name, email, mobile string, subscriptionID id.SubscriptionID, startAt, endAt time.Time, now time.Time) (*Tenant, error) {
	if slug == "" || name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "slug and name cannot be empty")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if !endAt.After(startAt) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "subscription window must end after it starts")
	}
	return &Tenant{
		Slug:           slug,
		Name:           name,
		Email:          email,
		Mobile:         mobile,
		SubscriptionID: subscriptionID,
		StartAt:        startAt,
		EndAt:          endAt,
		PayStatus:      PayStatusInitiate,
		Status:         TenantStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
