package handlers

import (
	"context"
	"net/http"
)

// HandleQueue serves the pending queue: GET lists every item including
// failed-permanent ones, DELETE drops the queue.
func (h *Handler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items := h.pipe.PendingItems()
		h.writeJSON(w, map[string]any{
			"items":   items,
			"pending": h.pipe.PendingCount(),
		})
	case http.MethodDelete:
		if err := h.pipe.ClearPending(r.Context()); err != nil {
			h.writeError(w, "Failed to clear queue: "+err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, map[string]any{"cleared": true})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleDrain kicks off a drain pass. The pass runs in the background; a
// pass already in flight makes this a no-op.
func (h *Handler) HandleDrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	go h.pipe.Drain(context.Background())

	// The header must be set before the status line is written.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	h.writeJSON(w, map[string]any{
		"status":  "draining",
		"pending": h.pipe.PendingCount(),
	})
}

// HandleCache reports cache occupancy on GET and clears it on DELETE.
func (h *Handler) HandleCache(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, map[string]any{"entries": h.pipe.CacheLen()})
	case http.MethodDelete:
		if err := h.pipe.ClearCache(r.Context()); err != nil {
			h.writeError(w, "Failed to clear cache: "+err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, map[string]any{"cleared": true})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
