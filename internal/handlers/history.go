package handlers

import "net/http"

// HandleHistory serves the scan history: GET lists newest first, DELETE
// clears it.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		records := h.pipe.History()
		h.writeJSON(w, map[string]any{
			"history": records,
			"count":   len(records),
		})
	case http.MethodDelete:
		if err := h.pipe.ClearHistory(r.Context()); err != nil {
			h.writeError(w, "Failed to clear history: "+err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, map[string]any{"cleared": true})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
