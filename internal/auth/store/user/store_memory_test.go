package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vras/internal/auth/models"
	"vras/internal/sentinel"
)

func newTestUser(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := models.NewUser(1, models.RoleUser, "Alice", username, username+"@example.com", "055"+username, "hash", time.Now())
	require.NoError(t, err)
	return u
}

func TestCreateAssignsID(t *testing.T) {
	store := New()
	ctx := context.Background()

	first := newTestUser(t, "alice")
	second := newTestUser(t, "bob")
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))

	assert.NotZero(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestFindActiveByIdentifier(t *testing.T) {
	store := New()
	ctx := context.Background()

	u := newTestUser(t, "alice")
	require.NoError(t, store.Create(ctx, u))

	for _, identifier := range []string{"alice", "alice@example.com", "055alice"} {
		found, err := store.FindActiveByIdentifier(ctx, identifier, false)
		require.NoError(t, err, identifier)
		assert.Equal(t, u.ID, found.ID)
	}

	// admin scope excludes tenant principals
	_, err := store.FindActiveByIdentifier(ctx, "alice", true)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	// inactive principals never resolve
	u.Status = models.UserStatusInactive
	require.NoError(t, store.Update(ctx, u))
	_, err = store.FindActiveByIdentifier(ctx, "alice", false)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestFindBySessionToken(t *testing.T) {
	store := New()
	ctx := context.Background()

	u := newTestUser(t, "alice")
	u.ApplySessionToken("tok-1")
	require.NoError(t, store.Create(ctx, u))

	found, err := store.FindBySessionToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = store.FindBySessionToken(ctx, "")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = store.FindBySessionToken(ctx, "unknown")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestFindActiveByPairingCodeSkipsAdmins(t *testing.T) {
	store := New()
	ctx := context.Background()

	admin, err := models.NewUser(0, models.RoleAdmin, "Root", "root", "root@example.com", "0550000000", "hash", time.Now())
	require.NoError(t, err)
	admin.PairingCode = "1234"
	require.NoError(t, store.Create(ctx, admin))

	_, err = store.FindActiveByPairingCode(ctx, "1234")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	trainee := newTestUser(t, "alice")
	trainee.PairingCode = "5678"
	require.NoError(t, store.Create(ctx, trainee))

	found, err := store.FindActiveByPairingCode(ctx, "5678")
	require.NoError(t, err)
	assert.Equal(t, trainee.ID, found.ID)
}

func TestExistsIdentifier(t *testing.T) {
	store := New()
	ctx := context.Background()

	u := newTestUser(t, "alice")
	require.NoError(t, store.Create(ctx, u))

	taken, err := store.ExistsIdentifier(ctx, "alice", "fresh@example.com", "", 0)
	require.NoError(t, err)
	assert.True(t, taken["username"])
	assert.False(t, taken["email"])

	// the user's own row is excluded on update checks
	taken, err = store.ExistsIdentifier(ctx, "alice", "alice@example.com", "055alice", u.ID)
	require.NoError(t, err)
	assert.Empty(t, taken)
}

func TestDeleteIsSoft(t *testing.T) {
	store := New()
	ctx := context.Background()

	u := newTestUser(t, "alice")
	u.ApplySessionToken("tok-1")
	require.NoError(t, store.Create(ctx, u))
	require.NoError(t, store.Delete(ctx, u.ID))

	_, err := store.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = store.FindBySessionToken(ctx, "tok-1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "deleted user's token must stop resolving")

	assert.ErrorIs(t, store.Delete(ctx, u.ID), sentinel.ErrNotFound)
}

func TestCountByTenant(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestUser(t, "alice")))
	require.NoError(t, store.Create(ctx, newTestUser(t, "bob")))

	count, err := store.CountByTenant(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = store.CountByTenant(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStoreReturnsCopies(t *testing.T) {
	store := New()
	ctx := context.Background()

	u := newTestUser(t, "alice")
	require.NoError(t, store.Create(ctx, u))

	found, err := store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	found.Status = models.UserStatusInactive

	again, err := store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, again.Status, "mutating a returned user must not leak into the store")
}
