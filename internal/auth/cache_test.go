package auth

import (
	"testing"
	"time"
)

func TestSnapshotCache_RoundTrip(t *testing.T) {
	c := NewSnapshotCache(time.Minute)

	if _, ok := c.Get("u1"); ok {
		t.Fatal("Expected miss on empty cache")
	}

	c.Set("u1", &CredentialSnapshot{UserID: "u1", AccessToken: "at-1"})

	got, ok := c.Get("u1")
	if !ok {
		t.Fatal("Expected hit after Set")
	}
	if got.AccessToken != "at-1" {
		t.Errorf("Expected access token at-1, got %s", got.AccessToken)
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", c.Len())
	}
}

func TestSnapshotCache_ExpiredEntryBehavesAsAbsent(t *testing.T) {
	c := NewSnapshotCache(10 * time.Millisecond)
	c.Set("u1", &CredentialSnapshot{UserID: "u1"})

	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("u1"); ok {
		t.Error("Expected expired entry to behave as absent")
	}
}

func TestSnapshotCache_Invalidate(t *testing.T) {
	c := NewSnapshotCache(time.Minute)
	c.Set("u1", &CredentialSnapshot{UserID: "u1"})
	c.Set("u2", &CredentialSnapshot{UserID: "u2"})

	c.Invalidate("u1")

	if _, ok := c.Get("u1"); ok {
		t.Error("Expected miss after Invalidate")
	}
	if _, ok := c.Get("u2"); !ok {
		t.Error("Expected other entries to survive Invalidate")
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", c.Len())
	}
}

func TestSnapshotCache_SetReplaces(t *testing.T) {
	c := NewSnapshotCache(time.Minute)
	c.Set("u1", &CredentialSnapshot{UserID: "u1", AccessToken: "old"})
	c.Set("u1", &CredentialSnapshot{UserID: "u1", AccessToken: "new"})

	got, ok := c.Get("u1")
	if !ok {
		t.Fatal("Expected hit")
	}
	if got.AccessToken != "new" {
		t.Errorf("Expected replaced access token new, got %s", got.AccessToken)
	}
}

func TestSnapshotCache_DefaultTTL(t *testing.T) {
	c := NewSnapshotCache(0)
	if c.ttl != DefaultCacheTTL {
		t.Errorf("Expected default TTL %v, got %v", DefaultCacheTTL, c.ttl)
	}
}
