package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pic2nav/snapsync/internal/model"
	"github.com/pic2nav/snapsync/internal/store"
)

// pendingQueue holds submissions awaiting a retry, in creation order.
// failed-permanent items stay in the queue for user inspection; they are
// never dropped silently.
type pendingQueue struct {
	items []model.QueueItem
	db    store.Store
}

func loadQueue(ctx context.Context, db store.Store) (*pendingQueue, error) {
	q := &pendingQueue{db: db}
	raw, err := db.Get(ctx, store.KeyPendingQueue)
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &q.items); err != nil {
			q.items = nil
		}
	}
	return q, nil
}

func (q *pendingQueue) add(ctx context.Context, item model.QueueItem) error {
	q.items = append(q.items, item)
	return q.flush(ctx)
}

func (q *pendingQueue) remove(ctx context.Context, id string) error {
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return q.flush(ctx)
		}
	}
	return nil
}

// update replaces the stored item with the same ID.
func (q *pendingQueue) update(ctx context.Context, item model.QueueItem) error {
	for i := range q.items {
		if q.items[i].ID == item.ID {
			q.items[i] = item
			return q.flush(ctx)
		}
	}
	return nil
}

// retryable returns the items a drain pass should attempt, in creation
// order. failed-permanent items are excluded.
func (q *pendingQueue) retryable() []model.QueueItem {
	var out []model.QueueItem
	for _, item := range q.items {
		if item.Status != model.StatusFailedPermanent {
			out = append(out, item)
		}
	}
	return out
}

// pendingCount counts items still awaiting retry.
func (q *pendingQueue) pendingCount() int {
	n := 0
	for _, item := range q.items {
		if item.Status != model.StatusFailedPermanent {
			n++
		}
	}
	return n
}

// list returns a copy of all items, including failed-permanent ones.
func (q *pendingQueue) list() []model.QueueItem {
	out := make([]model.QueueItem, len(q.items))
	copy(out, q.items)
	return out
}

func (q *pendingQueue) clear(ctx context.Context) error {
	q.items = nil
	return q.db.Delete(ctx, store.KeyPendingQueue)
}

func (q *pendingQueue) flush(ctx context.Context) error {
	raw, err := json.Marshal(q.items)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if err := q.db.Set(ctx, store.KeyPendingQueue, raw); err != nil {
		return fmt.Errorf("persist queue: %w", err)
	}
	return nil
}
