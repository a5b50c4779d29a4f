package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(userID string) *CredentialSnapshot {
	return &CredentialSnapshot{
		UserID:       userID,
		AccessToken:  "at-" + userID,
		RefreshToken: "rt-" + userID,
		Expiry:       time.Now().Add(time.Hour),
	}
}

// evictionLog records pool evictions.
type evictionLog struct {
	mu      sync.Mutex
	evicted []string
}

func (l *evictionLog) record(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evicted = append(l.evicted, userID)
}

func (l *evictionLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.evicted)
}

func newTestPool(t *testing.T, size int, evictions *evictionLog) *Pool {
	t.Helper()

	cfg := PoolConfig{
		Size:  size,
		OAuth: newEndpointConfig("http://127.0.0.1:0"),
	}
	if evictions != nil {
		cfg.OnEvict = evictions.record
	}

	pool, err := NewPool(context.Background(), cfg)
	require.NoError(t, err)
	return pool
}

func TestNewPool_RequiresOAuthConfig(t *testing.T) {
	_, err := NewPool(context.Background(), PoolConfig{Size: 1})
	assert.Error(t, err)
}

func TestPool_AcquireBuildsClientBundle(t *testing.T) {
	pool := newTestPool(t, 4, nil)

	client, err := pool.Acquire("u1", testSnapshot("u1"))
	require.NoError(t, err)
	require.NotNil(t, client)

	assert.Equal(t, "u1", client.UserID)
	assert.NotNil(t, client.Gmail)
	assert.NotNil(t, client.Calendar)
	assert.NotNil(t, client.Tasks)
	assert.Equal(t, "at-u1", client.CurrentToken().AccessToken)
	assert.Equal(t, 1, pool.Len())
}

func TestPool_AcquireReturnsSameHandle(t *testing.T) {
	pool := newTestPool(t, 4, nil)

	first, err := pool.Acquire("u1", testSnapshot("u1"))
	require.NoError(t, err)

	// Lookup without a snapshot.
	second, err := pool.Acquire("u1", nil)
	require.NoError(t, err)
	assert.Same(t, first, second)

	// Reseed with new credentials: still the same handle, new token.
	reseed := testSnapshot("u1")
	reseed.AccessToken = "at-rotated"
	third, err := pool.Acquire("u1", reseed)
	require.NoError(t, err)
	assert.Same(t, first, third)
	assert.Equal(t, "at-rotated", first.CurrentToken().AccessToken)

	assert.Equal(t, 1, pool.Len())
}

func TestPool_AcquireWithoutSnapshotOrClient(t *testing.T) {
	pool := newTestPool(t, 4, nil)

	_, err := pool.Acquire("missing", nil)
	assert.Error(t, err)
	assert.Equal(t, 0, pool.Len())
}

func TestPool_EvictsLeastRecentlyUsed(t *testing.T) {
	evictions := &evictionLog{}
	pool := newTestPool(t, 3, evictions)

	for _, userID := range []string{"u1", "u2", "u3"} {
		_, err := pool.Acquire(userID, testSnapshot(userID))
		require.NoError(t, err)
	}

	// Touch u1 so u2 becomes the oldest.
	_, err := pool.Acquire("u1", nil)
	require.NoError(t, err)

	_, err = pool.Acquire("u4", testSnapshot("u4"))
	require.NoError(t, err)

	assert.Equal(t, 3, pool.Len())
	assert.Equal(t, []string{"u2"}, evictions.evicted)

	// u1 survived the eviction, u2 did not.
	_, err = pool.Acquire("u1", nil)
	assert.NoError(t, err)
	_, err = pool.Acquire("u2", nil)
	assert.Error(t, err)
}

func TestPool_CapacityHoldsAtDefaultSize(t *testing.T) {
	evictions := &evictionLog{}
	pool := newTestPool(t, 0, evictions) // 0 means DefaultPoolSize

	for i := 0; i < DefaultPoolSize; i++ {
		userID := fmt.Sprintf("user-%03d", i)
		_, err := pool.Acquire(userID, testSnapshot(userID))
		require.NoError(t, err)
	}

	assert.Equal(t, DefaultPoolSize, pool.Len())
	assert.Equal(t, 0, evictions.count())

	// One past capacity drops exactly the oldest; the pool stays full.
	_, err := pool.Acquire("one-more", testSnapshot("one-more"))
	require.NoError(t, err)

	assert.Equal(t, DefaultPoolSize, pool.Len())
	assert.Equal(t, []string{"user-000"}, evictions.evicted)
}

func TestPool_RemoveIsNotAnEviction(t *testing.T) {
	evictions := &evictionLog{}
	pool := newTestPool(t, 3, evictions)

	_, err := pool.Acquire("u1", testSnapshot("u1"))
	require.NoError(t, err)

	pool.Remove("u1")

	assert.Equal(t, 0, pool.Len())
	assert.Equal(t, 0, evictions.count())

	// Removing an absent user is a no-op.
	pool.Remove("u1")
	assert.Equal(t, 0, pool.Len())
}
