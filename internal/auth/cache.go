package auth

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	// DefaultCacheTTL bounds how long a credential snapshot is served without
	// a store read. Kept well below typical access-token lifetime so the
	// cache never outlives the token it describes by much.
	DefaultCacheTTL = 30 * time.Minute

	// cacheCleanupInterval is how often stale entries are physically removed.
	cacheCleanupInterval = 1 * time.Minute
)

// SnapshotCache is the process-wide, short-TTL cache of credential
// snapshots. It only ever saves a store round-trip; it is never the system
// of record, and a miss always falls through to the store.
type SnapshotCache struct {
	ttl   time.Duration
	cache *gocache.Cache
}

// NewSnapshotCache creates a snapshot cache with the given TTL, falling back
// to DefaultCacheTTL when it is not positive. Expired entries behave as
// absent immediately and are physically evicted by the background janitor.
func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &SnapshotCache{
		ttl:   ttl,
		cache: gocache.New(ttl, cacheCleanupInterval),
	}
}

// Get returns the cached snapshot for the user, if a live one exists.
func (c *SnapshotCache) Get(userID string) (*CredentialSnapshot, bool) {
	v, ok := c.cache.Get(userID)
	if !ok {
		return nil, false
	}
	snapshot, ok := v.(*CredentialSnapshot)
	return snapshot, ok
}

// Set stores a snapshot for the user under the cache's TTL.
func (c *SnapshotCache) Set(userID string, snapshot *CredentialSnapshot) {
	c.cache.Set(userID, snapshot, gocache.DefaultExpiration)
}

// Invalidate drops the user's entry, forcing the next read through to the
// store.
func (c *SnapshotCache) Invalidate(userID string) {
	c.cache.Delete(userID)
}

// Len returns the number of entries, live or awaiting the janitor.
func (c *SnapshotCache) Len() int {
	return c.cache.ItemCount()
}
