package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/tiercache/tiercache/types"
)

type jsonSerializer struct{}

func (jsonSerializer) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (jsonSerializer) Unmarshal(d []byte, v any) error { return json.Unmarshal(d, v) }

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := NewRedisStore(RedisConfig{Addr: mr.Addr()}, jsonSerializer{})
	if err != nil {
		t.Fatalf("Failed to create Redis store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStoreSetGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "key", "value", types.ExpirationSpec{}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, found, err := store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("Value should be found")
	}
	if value != "value" {
		t.Fatalf("Expected value, got %v", value)
	}
}

func TestRedisStoreMiss(t *testing.T) {
	store, _ := newTestStore(t)

	_, found, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Fatal("Missing key should not be found")
	}
}

func TestRedisStoreStructuredValue(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	in := map[string]any{"id": float64(42), "name": "widget"}
	if err := store.Set(ctx, "obj", in, types.ExpirationSpec{}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, found, err := store.Get(ctx, "obj")
	if err != nil || !found {
		t.Fatalf("Get failed: found=%v err=%v", found, err)
	}

	out, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("Expected map value, got %T", value)
	}
	if out["id"] != float64(42) || out["name"] != "widget" {
		t.Fatalf("Round trip mismatch: %v", out)
	}
}

func TestRedisStoreAbsoluteExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "key", "value", types.AbsoluteExpiration(time.Second)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, found, _ := store.Get(ctx, "key"); !found {
		t.Fatal("Value should be found before expiry")
	}

	mr.FastForward(2 * time.Second)

	if _, found, _ := store.Get(ctx, "key"); found {
		t.Fatal("Value should have expired")
	}
}

func TestRedisStoreSlidingRenewsOnRead(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "key", "value", types.SlidingExpiration(time.Second)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Each read within the window renews the deadline, so the entry
	// outlives its original TTL.
	for i := 0; i < 3; i++ {
		mr.FastForward(600 * time.Millisecond)
		if _, found, _ := store.Get(ctx, "key"); !found {
			t.Fatalf("Sliding entry should survive read %d", i)
		}
	}

	mr.FastForward(2 * time.Second)
	if _, found, _ := store.Get(ctx, "key"); found {
		t.Fatal("Sliding entry should expire once unread past the window")
	}
}

func TestRedisStoreRemove(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.Set(ctx, "key", "value", types.ExpirationSpec{})
	if err := store.Remove(ctx, "key"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if _, found, _ := store.Get(ctx, "key"); found {
		t.Fatal("Removed key should not be found")
	}
}

func TestRedisStoreRemoveByTag(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	store.Set(ctx, "p1", "a", types.ExpirationSpec{}, "products")
	store.Set(ctx, "p2", "b", types.ExpirationSpec{}, "products")
	store.Set(ctx, "u1", "c", types.ExpirationSpec{})

	if err := store.RemoveByTag(ctx, "products"); err != nil {
		t.Fatalf("RemoveByTag failed: %v", err)
	}

	if _, found, _ := store.Get(ctx, "p1"); found {
		t.Fatal("Tagged key p1 should be removed")
	}
	if _, found, _ := store.Get(ctx, "p2"); found {
		t.Fatal("Tagged key p2 should be removed")
	}
	if _, found, _ := store.Get(ctx, "u1"); !found {
		t.Fatal("Untagged key u1 should remain")
	}
	if mr.Exists(tagKeyPrefix + "products") {
		t.Fatal("Tag index set should be dropped")
	}
}

func TestRedisStoreGetWithTags(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "p1", "a", types.ExpirationSpec{}, "products", "featured"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, tags, found, err := store.GetWithTags(ctx, "p1")
	if err != nil || !found {
		t.Fatalf("GetWithTags failed: found=%v err=%v", found, err)
	}
	if value != "a" {
		t.Fatalf("Expected a, got %v", value)
	}
	if len(tags) != 2 || tags[0] != "products" || tags[1] != "featured" {
		t.Fatalf("Tags mismatch: %v", tags)
	}
}

func TestRedisStoreRetagPrunesOldTagSets(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "p1", "a", types.ExpirationSpec{}, "old", "both"); err != nil {
		t.Fatalf("First set failed: %v", err)
	}
	if err := store.Set(ctx, "p1", "b", types.ExpirationSpec{}, "both", "new"); err != nil {
		t.Fatalf("Second set failed: %v", err)
	}

	if members, _ := store.Client().SMembers(ctx, tagKeyPrefix+"old").Result(); len(members) != 0 {
		t.Fatalf("Dropped tag set should no longer hold the key: %v", members)
	}
	for _, tag := range []string{"both", "new"} {
		ok, err := store.Client().SIsMember(ctx, tagKeyPrefix+tag, "p1").Result()
		if err != nil || !ok {
			t.Fatalf("Key should be in tag set %s: ok=%v err=%v", tag, ok, err)
		}
	}

	// After the re-tag, invalidating the dropped tag must not remove the key.
	if err := store.RemoveByTag(ctx, "old"); err != nil {
		t.Fatalf("RemoveByTag failed: %v", err)
	}
	if _, found, _ := store.Get(ctx, "p1"); !found {
		t.Fatal("Re-tagged key should survive invalidation of its old tag")
	}
}

func TestRedisStoreRemoveByTagEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.RemoveByTag(context.Background(), "nothing"); err != nil {
		t.Fatalf("RemoveByTag of an unknown tag should be a no-op: %v", err)
	}
}

func TestRedisStoreNegativeEntry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "absent", types.NegativeEntry{}, types.AbsoluteExpiration(time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, found, err := store.Get(ctx, "absent")
	if err != nil || !found {
		t.Fatalf("Get failed: found=%v err=%v", found, err)
	}
	if _, ok := value.(types.NegativeEntry); !ok {
		t.Fatalf("Expected NegativeEntry marker, got %T", value)
	}
}

func TestRedisStoreClear(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.Set(ctx, "a", 1, types.ExpirationSpec{})
	store.Set(ctx, "b", 2, types.ExpirationSpec{})

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if _, found, _ := store.Get(ctx, "a"); found {
		t.Fatal("Cleared key should not be found")
	}
}

func TestRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(RedisConfig{Addr: addr}, jsonSerializer{})
	if err == nil {
		t.Fatal("Expected connection error for unreachable Redis")
	}
}
