package store

import (
	"context"
	"fmt"
	"sync"

	"vras/internal/sentinel"
	"vras/internal/tenant/models"
	id "vras/pkg/domain"
)

// InMemoryStore keeps tenants and subscription plans in memory for tests and
// dev. Deleted tenants stay in the map with status "deleted", mirroring the
// SQL store's soft delete.
type InMemoryStore struct {
	mu            sync.RWMutex
	nextTenant    int64
	nextPlan      int64
	tenants       map[id.TenantID]*models.Tenant
	subscriptions map[id.SubscriptionID]*models.Subscription
}

func New() *InMemoryStore {
	return &InMemoryStore{
		tenants:       make(map[id.TenantID]*models.Tenant),
		subscriptions: make(map[id.SubscriptionID]*models.Subscription),
	}
}

func (s *InMemoryStore) Create(_ context.Context, tenant *models.Tenant) error {
	if tenant == nil {
		return fmt.Errorf("tenant is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTenant++
	tenant.ID = id.TenantID(s.nextTenant)
	s.tenants[tenant.ID] = cloneTenant(tenant)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, tenant *models.Tenant) error {
	if tenant == nil {
		return fmt.Errorf("tenant is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenant.ID]; !ok {
		return fmt.Errorf("tenant not found: %w", sentinel.ErrNotFound)
	}
	s.tenants[tenant.ID] = cloneTenant(tenant)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tenants[tenantID]; ok && t.Status != models.TenantStatusDeleted {
		return cloneTenant(t), nil
	}
	return nil, fmt.Errorf("tenant not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tenants {
		if t.Slug == slug && t.Status != models.TenantStatusDeleted {
			return cloneTenant(t), nil
		}
	}
	return nil, fmt.Errorf("tenant not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenants := make([]*models.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		if t.Status != models.TenantStatusDeleted {
			tenants = append(tenants, cloneTenant(t))
		}
	}
	return tenants, nil
}

// ExistsIdentifier reports which of slug/email already belong to a different,
// non-deleted tenant.
func (s *InMemoryStore) ExistsIdentifier(_ context.Context, slug, email string, exclude id.TenantID) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	taken := map[string]bool{}
	for _, t := range s.tenants {
		if t.ID == exclude || t.Status == models.TenantStatusDeleted {
			continue
		}
		if slug != "" && t.Slug == slug {
			taken["slug"] = true
		}
		if email != "" && t.Email == email {
			taken["email"] = true
		}
	}
	return taken, nil
}

func (s *InMemoryStore) Delete(_ context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID]
	if !ok || t.Status == models.TenantStatusDeleted {
		return fmt.Errorf("tenant not found: %w", sentinel.ErrNotFound)
	}
	t.Status = models.TenantStatusDeleted
	return nil
}

func (s *InMemoryStore) CreateSubscription(_ context.Context, plan *models.Subscription) error {
	if plan == nil {
		return fmt.Errorf("subscription is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPlan++
	plan.ID = id.SubscriptionID(s.nextPlan)
	c := *plan
	s.subscriptions[plan.ID] = &c
	return nil
}

func (s *InMemoryStore) UpdateSubscription(_ context.Context, plan *models.Subscription) error {
	if plan == nil {
		return fmt.Errorf("subscription is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscriptions[plan.ID]; !ok {
		return fmt.Errorf("subscription not found: %w", sentinel.ErrNotFound)
	}
	c := *plan
	s.subscriptions[plan.ID] = &c
	return nil
}

func (s *InMemoryStore) FindSubscriptionByID(_ context.Context, planID id.SubscriptionID) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.subscriptions[planID]; ok {
		c := *p
		return &c, nil
	}
	return nil, fmt.Errorf("subscription not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListSubscriptions(_ context.Context) ([]*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plans := make([]*models.Subscription, 0, len(s.subscriptions))
	for _, p := range s.subscriptions {
		c := *p
		plans = append(plans, &c)
	}
	return plans, nil
}

func (s *InMemoryStore) DeleteSubscription(_ context.Context, planID id.SubscriptionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscriptions[planID]; !ok {
		return fmt.Errorf("subscription not found: %w", sentinel.ErrNotFound)
	}
	delete(s.subscriptions, planID)
	return nil
}

func cloneTenant(t *models.Tenant) *models.Tenant {
	c := *t
	return &c
}
