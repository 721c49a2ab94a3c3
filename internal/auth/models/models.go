package models

import (
	"time"

	id "vras/pkg/domain"
	dErrors "vras/pkg/domain-errors"
)

// This file contains pure domain models for authentication: entities that
// should not depend on transport or HTTP-specific concerns.

// Role is the coarse authorization level gating route groups.
type Role string

const (
	RoleAdmin    Role = "admin"    // platform administrator, not tenant-scoped
	RoleOperator Role = "operator" // tenant operator (the client org account)
	RoleUser     Role = "user"     // trainee inside a tenant
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleUser:
		return true
	}
	return false
}

// UserStatus is the account lifecycle state. Only active users authenticate.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusDeleted  UserStatus = "deleted"
)

// Gender and PrimaryHand are trainee profile attributes used by the
// simulation engine when rigging sessions.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type PrimaryHand string

const (
	HandLeft  PrimaryHand = "left"
	HandRight PrimaryHand = "right"
)

// User is the principal record: identity, credential material, and trainee
// profile. Credential fields (PasswordHash, SessionToken, PairingCode,
// ResetCode) live on the same row as the identity; the single-token design
// means a new login overwrites the prior session token.
type User struct {
	ID       id.UserID
	TenantID id.TenantID // zero for platform admins
	Role     Role
	Status   UserStatus

	Name     string
	LastName string
	Username string
	Email    string
	Mobile   string
	Avatar   string

	// Credential material.
	PasswordHash   string
	SessionToken   string // current live token; empty when logged out
	PairingCode    string // short numeric headset code; empty when unset
	ResetCode      string
	ResetExpiresAt *time.Time

	// Stored but deliberately not enforced by the role gate; fine-grained
	// permission evaluation is a separate, not-yet-specified feature.
	Permissions map[string]any

	// Device display name recorded at the most recent login ("Chrome on macOS").
	DeviceName string

	// Trainee profile.
	DateOfBirth     *time.Time
	Gender          Gender
	PrimaryHand     PrimaryHand
	Address         string
	City            string
	Country         string
	PostalCode      string
	ExperienceLevel float64
	StressLevel     float64
	Notes           string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// FullName joins first and last name the way the UI displays trainees.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.Name
	}
	return u.Name + " " + u.LastName
}

// ApplySessionToken overwrites the prior token. The single live token per
// principal is an invariant: two sequential logins leave only the second
// token authenticating.
func (u *User) ApplySessionToken(token string) {
	u.SessionToken = token
}

// ClearCredentials removes the live session token and pairing code at logout.
func (u *User) ClearCredentials() {
	u.SessionToken = ""
	u.PairingCode = ""
}

// ApplyResetCode stores a password-reset code with its expiry. Re-requesting
// supersedes any outstanding code.
func (u *User) ApplyResetCode(code string, expiresAt time.Time) {
	u.ResetCode = code
	u.ResetExpiresAt = &expiresAt
}

// ConsumeResetCode validates a reset code and clears it. A code is single-use
// and only valid strictly before its expiry.
func (u *User) ConsumeResetCode(code string, now time.Time) error {
	if u.ResetCode == "" || u.ResetCode != code {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid reset code")
	}
	if u.ResetExpiresAt == nil || !now.Before(*u.ResetExpiresAt) {
		return dErrors.New(dErrors.CodeUnauthorized, "reset code expired")
	}
	u.ResetCode = ""
	u.ResetExpiresAt = nil
	return nil
}

// NewUser constructs a User and enforces basic invariants.
func NewUser(tenantID id.TenantID, role Role, name, username, email, mobile, passwordHash string, now time.Time) (*User, error) {
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid role")
	}
	if role != RoleAdmin && tenantID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "non-admin user must belong to a tenant")
	}
	if role == RoleAdmin && !tenantID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "admin user cannot belong to a tenant")
	}
	if username == "" || email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username and email cannot be empty")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash cannot be empty")
	}
	return &User{
		TenantID:     tenantID,
		Role:         role,
		Status:       UserStatusActive,
		Name:         name,
		Username:     username,
		Email:        email,
		Mobile:       mobile,
		PasswordHash: passwordHash,
		Gender:       GenderMale,
		PrimaryHand:  HandLeft,
		Permissions:  map[string]any{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
