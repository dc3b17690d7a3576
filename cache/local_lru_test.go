package cache

import (
	"context"
	"testing"
	"time"

	"github.com/tiercache/tiercache/types"
)

func TestLRUStoreSetGet(t *testing.T) {
	store, err := NewLRUStore(100)
	if err != nil {
		t.Fatalf("Failed to create LRU store: %v", err)
	}
	defer store.Close()

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

func TestLRUStoreMiss(t *testing.T) {
	store, err := NewLRUStore(100)
	if err != nil {
		t.Fatalf("Failed to create LRU store: %v", err)
	}
	defer store.Close()

	_, found, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Fatal("Missing key should not be found")
	}
}

func TestLRUStoreAbsoluteExpiry(t *testing.T) {
	store, err := NewLRUStore(100)
	if err != nil {
		t.Fatalf("Failed to create LRU store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if err := store.Set(ctx, "key", "value", types.AbsoluteExpiration(50*time.Millisecond)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, found, _ := store.Get(ctx, "key"); !found {
		t.Fatal("Value should be found before expiry")
	}

	time.Sleep(80 * time.Millisecond)

	if _, found, _ := store.Get(ctx, "key"); found {
		t.Fatal("Value should have expired")
	}
}

func TestLRUStoreSlidingExpiryRenews(t *testing.T) {
	store, err := NewLRUStore(100)
	if err != nil {
		t.Fatalf("Failed to create LRU store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if err := store.Set(ctx, "key", "value", types.SlidingExpiration(100*time.Millisecond)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Touch every 60ms: each read is within the window, so the entry
	// outlives its original deadline.
	for i := 0; i < 3; i++ {
		time.Sleep(60 * time.Millisecond)
		if _, found, _ := store.Get(ctx, "key"); !found {
			t.Fatalf("Sliding entry should survive touch %d", i)
		}
	}

	time.Sleep(150 * time.Millisecond)
	if _, found, _ := store.Get(ctx, "key"); found {
		t.Fatal("Sliding entry should expire after the window lapses")
	}
}

func TestLRUStoreRemove(t *testing.T) {
	store, err := NewLRUStore(100)
	if err != nil {
		t.Fatalf("Failed to create LRU store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	store.Set(ctx, "key", "value", types.ExpirationSpec{})
	store.Remove(ctx, "key")

	if _, found, _ := store.Get(ctx, "key"); found {
		t.Fatal("Removed key should not be found")
	}
}

func TestLRUStoreRemoveByTag(t *testing.T) {
	store, err := NewLRUStore(100)
	if err != nil {
		t.Fatalf("Failed to create LRU store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	store.Set(ctx, "a", 1, types.ExpirationSpec{}, "group")
	store.Set(ctx, "b", 2, types.ExpirationSpec{}, "group", "other")
	store.Set(ctx, "c", 3, types.ExpirationSpec{})

	if err := store.RemoveByTag(ctx, "group"); err != nil {
		t.Fatalf("RemoveByTag failed: %v", err)
	}

	if _, found, _ := store.Get(ctx, "a"); found {
		t.Fatal("Tagged key a should be removed")
	}
	if _, found, _ := store.Get(ctx, "b"); found {
		t.Fatal("Tagged key b should be removed")
	}
	if _, found, _ := store.Get(ctx, "c"); !found {
		t.Fatal("Untagged key c should remain")
	}
}

func TestLRUStoreClear(t *testing.T) {
	store, err := NewLRUStore(100)
	if err != nil {
		t.Fatalf("Failed to create LRU store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	store.Set(ctx, "a", 1, types.ExpirationSpec{})
	store.Set(ctx, "b", 2, types.ExpirationSpec{})
	store.Clear(ctx)

	if _, found, _ := store.Get(ctx, "a"); found {
		t.Fatal("Cleared key should not be found")
	}
	if _, found, _ := store.Get(ctx, "b"); found {
		t.Fatal("Cleared key should not be found")
	}
}

func TestLRUStoreMetrics(t *testing.T) {
	store, err := NewLRUStore(100)
	if err != nil {
		t.Fatalf("Failed to create LRU store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	store.Set(ctx, "key", "value", types.ExpirationSpec{})
	store.Get(ctx, "key")
	store.Get(ctx, "missing")

	m := store.Metrics()
	if m.Hits != 1 {
		t.Fatalf("Expected 1 hit, got %d", m.Hits)
	}
	if m.Misses != 1 {
		t.Fatalf("Expected 1 miss, got %d", m.Misses)
	}
	if m.Size != 100 {
		t.Fatalf("Expected size 100, got %d", m.Size)
	}
}

func TestLRUStoreFactory(t *testing.T) {
	factory := NewLRUStoreFactory(50)
	store, err := factory.Create()
	if err != nil {
		t.Fatalf("Factory failed: %v", err)
	}
	defer store.Close()

	if _, ok := store.(*LRUStore); !ok {
		t.Fatalf("Expected *LRUStore, got %T", store)
	}
}
