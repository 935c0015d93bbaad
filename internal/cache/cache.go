// Package cache is a content-addressed store of recognition results, bounded
// by both entry count and age. It is a recency-bounded cache, not an LRU:
// reads never refresh an entry's insertion time.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pic2nav/snapsync/internal/model"
	"github.com/pic2nav/snapsync/internal/store"
)

// Options configures a Cache.
type Options struct {
	// TTL is the maximum entry age. Expired entries are evicted on read.
	TTL time.Duration
	// MaxEntries caps the entry count; inserts past the cap evict
	// oldest-inserted-first.
	MaxEntries int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// DefaultOptions mirrors the capture app's cache settings.
func DefaultOptions() Options {
	return Options{
		TTL:        24 * time.Hour,
		MaxEntries: 100,
	}
}

// Cache maps image fingerprints to previously obtained recognition results.
// Entries persist through the durable store; every mutation flushes the full
// entry set as one write. Not safe for concurrent use; the pipeline
// serializes access.
type Cache struct {
	entries    map[string]model.CacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	db         store.Store
}

// New builds a cache backed by db, loading any persisted entries.
func New(ctx context.Context, db store.Store, opts Options) (*Cache, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultOptions().TTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultOptions().MaxEntries
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Cache{
		entries:    make(map[string]model.CacheEntry),
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		now:        opts.Now,
		db:         db,
	}

	raw, err := db.Get(ctx, store.KeyResultCache)
	if err != nil {
		return nil, fmt.Errorf("load cache: %w", err)
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &c.entries); err != nil {
			// A corrupt blob is discarded rather than wedging the pipeline.
			c.entries = make(map[string]model.CacheEntry)
		}
	}
	return c, nil
}

// Get returns the cached result for fingerprint, or nil when absent or past
// its TTL. Expiry evicts the entry as a side effect.
func (c *Cache) Get(ctx context.Context, fingerprint string) *model.RecognitionResult {
	entry, ok := c.entries[fingerprint]
	if !ok {
		return nil
	}
	if c.now().Sub(entry.InsertedAt) > c.ttl {
		delete(c.entries, fingerprint)
		c.flush(ctx)
		return nil
	}
	result := entry.Result
	return &result
}

// Put inserts or overwrites the entry for fingerprint, then evicts
// oldest-inserted entries until the cache is back at capacity.
func (c *Cache) Put(ctx context.Context, fingerprint string, result model.RecognitionResult) error {
	c.entries[fingerprint] = model.CacheEntry{
		Fingerprint: fingerprint,
		Result:      result,
		InsertedAt:  c.now(),
	}

	if len(c.entries) > c.maxEntries {
		ordered := make([]model.CacheEntry, 0, len(c.entries))
		for _, e := range c.entries {
			ordered = append(ordered, e)
		}
		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].InsertedAt.Before(ordered[j].InsertedAt)
		})
		for _, e := range ordered[:len(c.entries)-c.maxEntries] {
			delete(c.entries, e.Fingerprint)
		}
	}

	return c.flush(ctx)
}

// Len returns the current entry count, without expiry checks.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache) Clear(ctx context.Context) error {
	c.entries = make(map[string]model.CacheEntry)
	return c.db.Delete(ctx, store.KeyResultCache)
}

func (c *Cache) flush(ctx context.Context) error {
	raw, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := c.db.Set(ctx, store.KeyResultCache, raw); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}
