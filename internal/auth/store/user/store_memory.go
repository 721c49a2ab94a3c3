package user

import (
	"context"
	"fmt"
	"sync"

	"vras/internal/auth/models"
	"vras/internal/sentinel"
	id "vras/pkg/domain"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound (wrapped) when the requested entity does not exist
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures
//
// InMemoryStore keeps users in memory for tests/dev. Deleted users stay in the
// map with status "deleted" so identifier scans skip them the same way the SQL
// store's WHERE clause does.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	users  map[id.UserID]*models.User
}

// New constructs an empty in-memory user store.
func New() *InMemoryStore {
	return &InMemoryStore{users: make(map[id.UserID]*models.User)}
}

func (s *InMemoryStore) Create(_ context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	user.ID = id.UserID(s.nextID)
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok && user.Status != models.UserStatusDeleted {
		return cloneUser(user), nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

// FindActiveByIdentifier resolves an active principal whose username, email or
// mobile exactly matches the identifier, scoped to admin or tenant principals.
func (s *InMemoryStore) FindActiveByIdentifier(_ context.Context, identifier string, adminScope bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if !matchesScope(user, adminScope) || user.Status != models.UserStatusActive {
			continue
		}
		if user.Username == identifier || user.Email == identifier || user.Mobile == identifier {
			return cloneUser(user), nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

// FindActiveByEmail resolves an active principal by exact email within scope.
func (s *InMemoryStore) FindActiveByEmail(_ context.Context, email string, adminScope bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if matchesScope(user, adminScope) && user.Status == models.UserStatusActive && user.Email == email {
			return cloneUser(user), nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

// FindBySessionToken resolves a principal holding the presented token,
// regardless of status; the caller decides whether an inactive principal
// still authenticates (it never does).
func (s *InMemoryStore) FindBySessionToken(_ context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.SessionToken == token {
			return cloneUser(user), nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

// FindActiveByPairingCode resolves an active non-admin principal by exact
// pairing-code match.
func (s *InMemoryStore) FindActiveByPairingCode(_ context.Context, code string) (*models.User, error) {
	if code == "" {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if !user.IsAdmin() && user.Status == models.UserStatusActive && user.PairingCode == code {
			return cloneUser(user), nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*models.User, 0)
	for _, user := range s.users {
		if user.TenantID == tenantID && user.Status != models.UserStatusDeleted {
			users = append(users, cloneUser(user))
		}
	}
	return users, nil
}

func (s *InMemoryStore) CountByTenant(_ context.Context, tenantID id.TenantID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, user := range s.users {
		if user.TenantID == tenantID && user.Status != models.UserStatusDeleted {
			count++
		}
	}
	return count, nil
}

// ExistsIdentifier reports which of username/email/mobile already belong to a
// different, non-deleted user. Used for uniqueness checks before persisting.
func (s *InMemoryStore) ExistsIdentifier(_ context.Context, username, email, mobile string, exclude id.UserID) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	taken := map[string]bool{}
	for _, user := range s.users {
		if user.ID == exclude || user.Status == models.UserStatusDeleted {
			continue
		}
		if username != "" && user.Username == username {
			taken["username"] = true
		}
		if email != "" && user.Email == email {
			taken["email"] = true
		}
		if mobile != "" && user.Mobile == mobile {
			taken["mobile"] = true
		}
	}
	return taken, nil
}

// Delete soft-deletes the user so the row survives for audit while every
// authentication path skips it.
func (s *InMemoryStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok || user.Status == models.UserStatusDeleted {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	user.Status = models.UserStatusDeleted
	user.ClearCredentials()
	return nil
}

func matchesScope(user *models.User, adminScope bool) bool {
	return user.IsAdmin() == adminScope
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.Permissions != nil {
		c.Permissions = make(map[string]any, len(u.Permissions))
		for k, v := range u.Permissions {
			c.Permissions[k] = v
		}
	}
	if u.ResetExpiresAt != nil {
		t := *u.ResetExpiresAt
		c.ResetExpiresAt = &t
	}
	if u.DateOfBirth != nil {
		t := *u.DateOfBirth
		c.DateOfBirth = &t
	}
	return &c
}
