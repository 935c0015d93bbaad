package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pic2nav/snapsync/internal/model"
	"github.com/pic2nav/snapsync/internal/store"
)

// historyLog is the capped, newest-first record of what the user has
// scanned. Records are immutable; reconciliation replaces them by position.
type historyLog struct {
	records []model.RecognitionResult
	limit   int
	db      store.Store
}

func loadHistory(ctx context.Context, db store.Store, limit int) (*historyLog, error) {
	h := &historyLog{limit: limit, db: db}
	raw, err := db.Get(ctx, store.KeyHistory)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &h.records); err != nil {
			h.records = nil
		}
	}
	if len(h.records) > limit {
		h.records = h.records[:limit]
	}
	return h, nil
}

// append prepends r and evicts past the cap.
func (h *historyLog) append(ctx context.Context, r model.RecognitionResult) error {
	h.records = append([]model.RecognitionResult{r}, h.records...)
	if len(h.records) > h.limit {
		h.records = h.records[:h.limit]
	}
	return h.flush(ctx)
}

// reconcile replaces the most recent provisional record whose CreatedAt is
// within window of queuedAt with the authoritative replacement. The
// replacement keeps the provisional record's CreatedAt so history ordering
// is stable. Returns false when no matching provisional record exists.
func (h *historyLog) reconcile(ctx context.Context, queuedAt time.Time, window time.Duration, replacement model.RecognitionResult) (bool, error) {
	for i, r := range h.records {
		if !r.Provisional() {
			continue
		}
		delta := r.CreatedAt.Sub(queuedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta <= window {
			replacement.CreatedAt = r.CreatedAt
			h.records[i] = replacement
			return true, h.flush(ctx)
		}
	}
	return false, nil
}

// list returns a copy, newest first.
func (h *historyLog) list() []model.RecognitionResult {
	out := make([]model.RecognitionResult, len(h.records))
	copy(out, h.records)
	return out
}

func (h *historyLog) clear(ctx context.Context) error {
	h.records = nil
	return h.db.Delete(ctx, store.KeyHistory)
}

func (h *historyLog) flush(ctx context.Context) error {
	raw, err := json.Marshal(h.records)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := h.db.Set(ctx, store.KeyHistory, raw); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}
