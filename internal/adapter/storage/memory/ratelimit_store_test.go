package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClockedStore() (*RateLimitStore, *time.Time) {
	store := NewRateLimitStore()
	clock := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return clock }
	return store, &clock
}

func TestRateLimitStore_Allow(t *testing.T) {
	store, clock := newClockedStore()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		result, err := store.Allow(ctx, "transfers:caller1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i)
		assert.Equal(t, 3-i, result.Remaining)
		assert.Equal(t, int64(3), result.Limit)
	}

	result, err := store.Allow(ctx, "transfers:caller1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, int64(0), result.Remaining)
	assert.Greater(t, result.ResetAt, clock.Unix())

	// One token refills every 20s.
	*clock = clock.Add(21 * time.Second)
	result, err = store.Allow(ctx, "transfers:caller1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRateLimitStore_KeysAreIndependent(t *testing.T) {
	store, _ := newClockedStore()
	ctx := context.Background()

	_, err := store.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)

	result, err := store.Allow(ctx, "b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRateLimitStore_SweepsIdleBuckets(t *testing.T) {
	store, clock := newClockedStore()
	ctx := context.Background()

	_, err := store.Allow(ctx, "idle", 5, time.Minute)
	require.NoError(t, err)
	require.Len(t, store.buckets, 1)

	*clock = clock.Add(2 * time.Minute)
	_, err = store.Allow(ctx, "fresh", 5, time.Minute)
	require.NoError(t, err)

	_, stillThere := store.buckets["idle"]
	assert.False(t, stillThere)
	assert.Len(t, store.buckets, 1)
}
