package redis

import (
	"context"
	"testing"
	"time"
)

func TestIdempotencyStore_BeginClaimsNewKey(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	claimed, cached, err := store.Begin(ctx, "transfer-1", time.Minute)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if !claimed || cached != nil {
		t.Fatalf("expected fresh claim, got claimed=%v cached=%s", claimed, cached)
	}

	val, err := client.Get(ctx, store.prefix+"transfer-1").Result()
	if err != nil || val != inFlightSentinel {
		t.Fatalf("expected in-flight sentinel, got val=%q err=%v", val, err)
	}
}

func TestIdempotencyStore_BeginReportsInFlightKey(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.Begin(ctx, "transfer-2", time.Minute); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	claimed, cached, err := store.Begin(ctx, "transfer-2", time.Minute)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if claimed || cached != nil {
		t.Fatalf("expected lost claim with no cached response, got claimed=%v cached=%s", claimed, cached)
	}
}

func TestIdempotencyStore_BeginReplaysFinishedResponse(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.Begin(ctx, "transfer-3", time.Minute); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Update(ctx, "transfer-3", []byte(`{"state":"committed"}`), time.Minute); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	claimed, cached, err := store.Begin(ctx, "transfer-3", time.Minute)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if claimed || string(cached) != `{"state":"committed"}` {
		t.Fatalf("expected replay, got claimed=%v cached=%s", claimed, cached)
	}
}

func TestIdempotencyStore_ReleaseAllowsReclaim(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.Begin(ctx, "transfer-4", time.Minute); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Release(ctx, "transfer-4"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	claimed, _, err := store.Begin(ctx, "transfer-4", time.Minute)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected a released key to be claimable again")
	}
}
