package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "vras/pkg/domain"
	dErrors "vras/pkg/domain-errors"
)

func TestNewUserInvariants(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		tenantID id.TenantID
		role     Role
		username string
		email    string
		hash     string
		wantErr  bool
	}{
		{"tenant user", 1, RoleUser, "alice", "alice@example.com", "h", false},
		{"tenant operator", 1, RoleOperator, "ops", "ops@example.com", "h", false},
		{"platform admin", 0, RoleAdmin, "root", "root@example.com", "h", false},
		{"user without tenant", 0, RoleUser, "alice", "alice@example.com", "h", true},
		{"admin with tenant", 1, RoleAdmin, "root", "root@example.com", "h", true},
		{"invalid role", 1, Role("boss"), "alice", "alice@example.com", "h", true},
		{"missing username", 1, RoleUser, "", "alice@example.com", "h", true},
		{"missing hash", 1, RoleUser, "alice", "alice@example.com", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewUser(tt.tenantID, tt.role, "Alice", tt.username, tt.email, "0123456789", tt.hash, now)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, UserStatusActive, u.Status)
			assert.True(t, u.IsActive())
		})
	}
}

func TestApplySessionTokenOverwrites(t *testing.T) {
	u := &User{SessionToken: "first"}
	u.ApplySessionToken("second")
	assert.Equal(t, "second", u.SessionToken)
}

func TestClearCredentials(t *testing.T) {
	u := &User{SessionToken: "tok", PairingCode: "1234"}
	u.ClearCredentials()
	assert.Empty(t, u.SessionToken)
	assert.Empty(t, u.PairingCode)
}

func TestConsumeResetCode(t *testing.T) {
	now := time.Now()

	t.Run("valid code is single use", func(t *testing.T) {
		u := &User{}
		u.ApplyResetCode("A1B2C3", now.Add(time.Hour))

		require.NoError(t, u.ConsumeResetCode("A1B2C3", now))
		assert.Empty(t, u.ResetCode)

		err := u.ConsumeResetCode("A1B2C3", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("expired code rejected", func(t *testing.T) {
		u := &User{}
		u.ApplyResetCode("A1B2C3", now.Add(-time.Minute))

		err := u.ConsumeResetCode("A1B2C3", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("mismatched code rejected", func(t *testing.T) {
		u := &User{}
		u.ApplyResetCode("A1B2C3", now.Add(time.Hour))

		err := u.ConsumeResetCode("FFFFFF", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.NotEmpty(t, u.ResetCode, "failed attempt must not consume the code")
	})
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Alice Smith", (&User{Name: "Alice", LastName: "Smith"}).FullName())
	assert.Equal(t, "Alice", (&User{Name: "Alice"}).FullName())
}
