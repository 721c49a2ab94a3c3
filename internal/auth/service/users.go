package service

import (
	"context"
	"errors"
	"time"

	"vras/internal/auth/models"
	"vras/internal/sentinel"
	id "vras/pkg/domain"
	dErrors "vras/pkg/domain-errors"
)

// UserInput carries the writable fields for user create/update. Zero values
// on update mean "leave unchanged" for profile fields; identifiers are always
// uniqueness-checked when set.
type UserInput struct {
	Name            string
	LastName        string
	Username        string
	Email           string
	Mobile          string
	Password        string
	Role            models.Role
	Status          models.UserStatus
	Avatar          string
	DateOfBirth     *time.Time
	Gender          models.Gender
	PrimaryHand     models.PrimaryHand
	Address         string
	City            string
	Country         string
	PostalCode      string
	ExperienceLevel float64
	StressLevel     float64
	Notes           string
}

// ListUsers returns the tenant's non-deleted users.
func (s *Service) ListUsers(ctx context.Context, tenantID id.TenantID) ([]*models.User, error) {
	users, err := s.users.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list users")
	}
	return users, nil
}

// CreateUser adds a trainee or operator to the tenant, enforcing identifier
// uniqueness and the subscription's user cap.
func (s *Service) CreateUser(ctx context.Context, tenantID id.TenantID, in UserInput) (*models.User, error) {
	if err := s.checkIdentifierUnique(ctx, in.Username, in.Email, in.Mobile, 0); err != nil {
		return nil, err
	}
	if err := s.checkUserCap(ctx, tenantID); err != nil {
		return nil, err
	}

	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	user, err := models.NewUser(tenantID, role, in.Name, in.Username, in.Email, in.Mobile, hash, s.now())
	if err != nil {
		return nil, err
	}
	applyProfile(user, in)

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.NewField(dErrors.CodeConflict, "username", "Already taken.", "unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create user")
	}
	s.logger.Info("user created", "user_id", user.ID.Int64(), "tenant_id", tenantID.Int64())
	return user, nil
}

// GetUser resolves a user within the caller's tenant. Cross-tenant IDs look
// identical to missing ones.
func (s *Service) GetUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "User not found.")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find user")
	}
	if user.TenantID != tenantID {
		return nil, dErrors.New(dErrors.CodeNotFound, "User not found.")
	}
	return user, nil
}

// UpdateUser applies changes to a tenant's user.
func (s *Service) UpdateUser(ctx context.Context, tenantID id.TenantID, userID id.UserID, in UserInput) (*models.User, error) {
	user, err := s.GetUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	username, email, mobile := in.Username, in.Email, in.Mobile
	if err := s.checkIdentifierUnique(ctx, username, email, mobile, userID); err != nil {
		return nil, err
	}

	if username != "" {
		user.Username = username
	}
	if email != "" {
		user.Email = email
	}
	if mobile != "" {
		user.Mobile = mobile
	}
	if in.Name != "" {
		user.Name = in.Name
	}
	if in.Status != "" {
		user.Status = in.Status
	}
	if in.Role != "" && in.Role != models.RoleAdmin {
		user.Role = in.Role
	}
	if in.Password != "" {
		hash, err := s.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	applyProfile(user, in)
	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update user")
	}
	return user, nil
}

// DeleteUser soft-deletes a tenant's user and revokes its live token so the
// deleted account stops authenticating immediately.
func (s *Service) DeleteUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) error {
	user, err := s.GetUser(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if user.SessionToken != "" {
		if err := s.revocation.Revoke(ctx, user.SessionToken, s.tokenTTL); err != nil {
			if s.metrics != nil {
				s.metrics.IncrementRevocationErrors()
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "revoke session token")
		}
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete user")
	}
	s.logger.Info("user deleted", "user_id", userID.Int64(), "tenant_id", tenantID.Int64())
	return nil
}

// UpdateProfile lets an authenticated principal edit its own record. Role,
// status and tenant are not writable here.
func (s *Service) UpdateProfile(ctx context.Context, user *models.User, in UserInput) (*models.User, error) {
	if err := s.checkIdentifierUnique(ctx, in.Username, in.Email, in.Mobile, user.ID); err != nil {
		return nil, err
	}
	if in.Username != "" {
		user.Username = in.Username
	}
	if in.Email != "" {
		user.Email = in.Email
	}
	if in.Mobile != "" {
		user.Mobile = in.Mobile
	}
	if in.Name != "" {
		user.Name = in.Name
	}
	applyProfile(user, in)
	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update profile")
	}
	return user, nil
}

func (s *Service) checkIdentifierUnique(ctx context.Context, username, email, mobile string, exclude id.UserID) error {
	if username == "" && email == "" && mobile == "" {
		return nil
	}
	taken, err := s.users.ExistsIdentifier(ctx, username, email, mobile, exclude)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "identifier uniqueness check")
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

func (s *Service) checkUserCap(ctx context.Context, tenantID id.TenantID) error {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "tenant lookup")
	}
	plan, err := s.tenants.FindSubscriptionByID(ctx, tenant.SubscriptionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "subscription lookup")
	}
	if plan.UserCap <= 0 {
		return nil
	}
	count, err := s.users.CountByTenant(ctx, tenantID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "count users")
	}
	if count >= plan.UserCap {
		return dErrors.New(dErrors.CodeConflict, "User limit reached for your subscription.")
	}
	return nil
}

func applyProfile(user *models.User, in UserInput) {
	if in.LastName != "" {
		user.LastName = in.LastName
	}
	if in.Avatar != "" {
		user.Avatar = in.Avatar
	}
	if in.DateOfBirth != nil {
		user.DateOfBirth = in.DateOfBirth
	}
	if in.Gender != "" {
		user.Gender = in.Gender
	}
	if in.PrimaryHand != "" {
		user.PrimaryHand = in.PrimaryHand
	}
	if in.Address != "" {
		user.Address = in.Address
	}
	if in.City != "" {
		user.City = in.City
	}
	if in.Country != "" {
		user.Country = in.Country
	}
	if in.PostalCode != "" {
		user.PostalCode = in.PostalCode
	}
	if in.ExperienceLevel != 0 {
		user.ExperienceLevel = in.ExperienceLevel
	}
	if in.StressLevel != 0 {
		user.StressLevel = in.StressLevel
	}
	if in.Notes != "" {
		user.Notes = in.Notes
	}
}
