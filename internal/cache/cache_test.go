package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pic2nav/snapsync/internal/model"
	"github.com/pic2nav/snapsync/internal/store"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func newTestCache(t *testing.T, opts Options) (*Cache, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts.Now = clock.now
	c, err := New(context.Background(), store.NewMemStore(), opts)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return c, clock
}

func result(id string) model.RecognitionResult {
	return model.RecognitionResult{ID: id, Success: true, Origin: model.OriginRemote}
}

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{})

	if err := c.Put(ctx, "fp1", result("r1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got := c.Get(ctx, "fp1")
	if got == nil {
		t.Fatal("expected hit")
	}
	if got.ID != "r1" {
		t.Errorf("got result %q, want r1", got.ID)
	}
	if c.Get(ctx, "nope") != nil {
		t.Error("expected miss for unknown fingerprint")
	}
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t, Options{TTL: time.Hour})

	c.Put(ctx, "fp", result("r"))

	clock.advance(59 * time.Minute)
	if c.Get(ctx, "fp") == nil {
		t.Fatal("entry expired before TTL")
	}

	clock.advance(2 * time.Minute)
	if c.Get(ctx, "fp") != nil {
		t.Fatal("entry survived past TTL")
	}
	// Expiry evicts as a side effect.
	if c.Len() != 0 {
		t.Errorf("expired entry not evicted, len = %d", c.Len())
	}
}

func TestCapacityEviction(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t, Options{MaxEntries: 2})

	c.Put(ctx, "a", result("ra"))
	clock.advance(time.Second)
	c.Put(ctx, "b", result("rb"))
	clock.advance(time.Second)
	c.Put(ctx, "c", result("rc"))

	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}
	if c.Get(ctx, "a") != nil {
		t.Error("oldest entry should have been evicted")
	}
	if c.Get(ctx, "b") == nil || c.Get(ctx, "c") == nil {
		t.Error("newest two entries should remain")
	}
}

func TestNotAnLRU(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t, Options{MaxEntries: 2})

	c.Put(ctx, "a", result("ra"))
	clock.advance(time.Second)
	c.Put(ctx, "b", result("rb"))
	clock.advance(time.Second)

	// Reading "a" must not refresh it.
	c.Get(ctx, "a")
	c.Put(ctx, "c", result("rc"))

	if c.Get(ctx, "a") != nil {
		t.Error("access refreshed insertion order; cache must not behave like an LRU")
	}
}

func TestOverwriteSameFingerprint(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{MaxEntries: 2})

	c.Put(ctx, "fp", result("r1"))
	c.Put(ctx, "fp", result("r2"))

	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1", c.Len())
	}
	if got := c.Get(ctx, "fp"); got == nil || got.ID != "r2" {
		t.Errorf("overwrite not applied: %+v", got)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemStore()
	clock := newFakeClock()

	c1, err := New(ctx, db, Options{Now: clock.now})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	c1.Put(ctx, "fp", result("r"))

	// A second cache over the same store sees the entry.
	c2, err := New(ctx, db, Options{Now: clock.now})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := c2.Get(ctx, "fp"); got == nil || got.ID != "r" {
		t.Errorf("persisted entry missing after reopen: %+v", got)
	}
}

func TestCorruptPersistedBlobIsDiscarded(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemStore()
	db.Set(ctx, store.KeyResultCache, []byte("{not json"))

	c, err := New(ctx, db, Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("corrupt blob should load as empty, len = %d", c.Len())
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{})

	c.Put(ctx, "fp", result("r"))
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if c.Len() != 0 || c.Get(ctx, "fp") != nil {
		t.Error("clear left entries behind")
	}
}
