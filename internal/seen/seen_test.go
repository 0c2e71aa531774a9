package seen

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client), mr
}

func TestMarkSeen_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	seen, err := store.IsSeen(ctx, "post-1")
	if err != nil {
		t.Fatalf("IsSeen: %v", err)
	}
	if seen {
		t.Fatal("expected unseen id before marking")
	}

	if err := store.MarkSeen(ctx, "post-1"); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	seen, err = store.IsSeen(ctx, "post-1")
	if err != nil {
		t.Fatalf("IsSeen: %v", err)
	}
	if !seen {
		t.Fatal("expected seen id after marking")
	}

	// A fresh client against the same backing store sees the mark, matching
	// the durability contract across process restarts.
	reopened := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = reopened.Close() })

	seen, err = NewRedisStore(reopened).IsSeen(ctx, "post-1")
	if err != nil {
		t.Fatalf("IsSeen after reload: %v", err)
	}
	if !seen {
		t.Fatal("expected mark to survive store reload")
	}
}

func TestMarkSeen_IdempotentPreservesMarkTime(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return first }
	if err := store.MarkSeen(ctx, "post-1"); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	store.now = func() time.Time { return first.Add(time.Hour) }
	if err := store.MarkSeen(ctx, "post-1"); err != nil {
		t.Fatalf("MarkSeen repeat: %v", err)
	}

	// Expiry relative to the first mark proves the original time survived.
	store.now = func() time.Time { return first.Add(30 * time.Minute) }
	removed, err := store.Expire(ctx, 10*time.Minute)
	if err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected original mark time to age out, removed=%d", removed)
	}
}

func TestMarkSeenBatch(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	ids := []string{"a", "b", "c"}
	if err := store.MarkSeenBatch(ctx, ids); err != nil {
		t.Fatalf("MarkSeenBatch: %v", err)
	}
	if err := store.MarkSeenBatch(ctx, nil); err != nil {
		t.Fatalf("MarkSeenBatch empty: %v", err)
	}

	for _, id := range ids {
		seen, err := store.IsSeen(ctx, id)
		if err != nil {
			t.Fatalf("IsSeen(%s): %v", id, err)
		}
		if !seen {
			t.Fatalf("expected %s to be marked", id)
		}
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}
}

func TestExpire_RemovesOnlyOldEntries(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return base }
	if err := store.MarkSeen(ctx, "old"); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	store.now = func() time.Time { return base.Add(3 * 24 * time.Hour) }
	if err := store.MarkSeen(ctx, "recent"); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	store.now = func() time.Time { return base.Add(4 * 24 * time.Hour) }
	removed, err := store.Expire(ctx, 2*24*time.Hour)
	if err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 expired entry, got %d", removed)
	}

	seen, err := store.IsSeen(ctx, "recent")
	if err != nil {
		t.Fatalf("IsSeen: %v", err)
	}
	if !seen {
		t.Fatal("expected recent entry to survive expiry")
	}

	seen, err = store.IsSeen(ctx, "old")
	if err != nil {
		t.Fatalf("IsSeen: %v", err)
	}
	if seen {
		t.Fatal("expected old entry to be expired")
	}
}

func TestTrim_KeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third", "fourth"} {
		offset := time.Duration(i) * time.Minute
		store.now = func() time.Time { return base.Add(offset) }
		if err := store.MarkSeen(ctx, id); err != nil {
			t.Fatalf("MarkSeen(%s): %v", id, err)
		}
	}

	removed, err := store.Trim(ctx, 2)
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	for id, want := range map[string]bool{
		"first":  false,
		"second": false,
		"third":  true,
		"fourth": true,
	} {
		seen, isErr := store.IsSeen(ctx, id)
		if isErr != nil {
			t.Fatalf("IsSeen(%s): %v", id, isErr)
		}
		if seen != want {
			t.Errorf("IsSeen(%s) = %v, want %v", id, seen, want)
		}
	}
}

func TestTrim_NoopBelowCeiling(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.MarkSeen(ctx, "only"); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	removed, err := store.Trim(ctx, 10)
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected no trim below ceiling, removed=%d", removed)
	}
}
