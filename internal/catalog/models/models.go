package models

import (
	"time"

	id "vras/pkg/domain"
	dErrors "vras/pkg/domain-errors"
)

// Weapon is a platform-wide catalog entry managed by admins; every tenant
// sees the same weapon list.
type Weapon struct {
	ID       id.WeaponID
	Name     string
	Category string
	Caliber  string
	Capacity int
	WeightKg float64
	ImageURL string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Target is a tenant-owned shooting target definition.
type Target struct {
	ID        id.TargetID
	TenantID  id.TenantID
	Name      string
	Kind      string
	DistanceM float64
	ImageURL  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Scenario is a tenant-owned training scenario: environment plus rigging
// parameters the simulation engine consumes.
type Scenario struct {
	ID          id.ScenarioID
	TenantID    id.TenantID
	Name        string
	Description string
	Difficulty  string
	Environment string
	DurationSec int
	WeaponID    id.WeaponID // optional default weapon

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewWeapon(name, category string, now time.Time) (*Weapon, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "weapon name cannot be empty")
	}
	return &Weapon{Name: name, Category: category, CreatedAt: now, UpdatedAt: now}, nil
}

func NewTarget(tenantID id.TenantID, name string, now time.Time) (*Target, error) {
	if tenantID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "target must belong to a tenant")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "target name cannot be empty")
	}
	return &Target{TenantID: tenantID, Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

func NewScenario(tenantID id.TenantID, name string, now time.Time) (*Scenario, error) {
	if tenantID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "scenario must belong to a tenant")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "scenario name cannot be empty")
	}
	return &Scenario{TenantID: tenantID, Name: name, CreatedAt: now, UpdatedAt: now}, nil
}
