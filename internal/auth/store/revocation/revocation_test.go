package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevokeThenCheck(t *testing.T) {
	list := NewInMemory()
	ctx := context.Background()

	revoked, err := list.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, list.Revoke(ctx, "tok-1", time.Hour))

	revoked, err = list.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = list.IsRevoked(ctx, "tok-2")
	require.NoError(t, err)
	assert.False(t, revoked, "revocation is per token")
}

func TestExpiredEntryNoLongerRevoked(t *testing.T) {
	list := NewInMemory()
	ctx := context.Background()

	require.NoError(t, list.Revoke(ctx, "tok-1", -time.Second))

	revoked, err := list.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestPruneRemovesExpiredEntries(t *testing.T) {
	list := NewInMemory()
	ctx := context.Background()

	require.NoError(t, list.Revoke(ctx, "stale", time.Minute))
	require.NoError(t, list.Revoke(ctx, "fresh", time.Hour))

	removed := list.Prune(time.Now().Add(30 * time.Minute))
	assert.Equal(t, 1, removed)

	revoked, err := list.IsRevoked(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestEmptyTokenIsIgnored(t *testing.T) {
	list := NewInMemory()
	ctx := context.Background()

	require.NoError(t, list.Revoke(ctx, "", time.Hour))

	revoked, err := list.IsRevoked(ctx, "")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestConcurrentRevocations(t *testing.T) {
	list := NewInMemory()
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				_ = list.Revoke(ctx, "tok", time.Hour)
				_, _ = list.IsRevoked(ctx, "tok")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	revoked, err := list.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)
}
