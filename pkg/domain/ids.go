package domain

import "strconv"

// Typed identifiers keep user/tenant/catalog references from being mixed up
// at compile time. The backing store assigns them (BIGSERIAL); zero means
// "not assigned" — except TenantID, where zero marks a platform-admin
// principal that is not scoped to any tenant.

type UserID int64

func (id UserID) Int64() int64   { return int64(id) }
func (id UserID) String() string { return strconv.FormatInt(int64(id), 10) }

type TenantID int64

func (id TenantID) Int64() int64   { return int64(id) }
func (id TenantID) String() string { return strconv.FormatInt(int64(id), 10) }

// IsZero reports whether the principal is unscoped (platform admin).
func (id TenantID) IsZero() bool { return id == 0 }

type SubscriptionID int64

func (id SubscriptionID) Int64() int64   { return int64(id) }
func (id SubscriptionID) String() string { return strconv.FormatInt(int64(id), 10) }

type WeaponID int64

func (id WeaponID) Int64() int64   { return int64(id) }
func (id WeaponID) String() string { return strconv.FormatInt(int64(id), 10) }

type TargetID int64

func (id TargetID) Int64() int64   { return int64(id) }
func (id TargetID) String() string { return strconv.FormatInt(int64(id), 10) }

type ScenarioID int64

func (id ScenarioID) Int64() int64   { return int64(id) }
func (id ScenarioID) String() string { return strconv.FormatInt(int64(id), 10) }

type SessionID int64

func (id SessionID) Int64() int64   { return int64(id) }
func (id SessionID) String() string { return strconv.FormatInt(int64(id), 10) }

type MetricID int64

func (id MetricID) Int64() int64   { return int64(id) }
func (id MetricID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseID parses a numeric route parameter.
func ParseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
