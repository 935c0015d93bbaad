// Package handlers exposes the pipeline over HTTP for companion apps that
// submit captures and browse history remotely.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/pic2nav/snapsync/internal/pipeline"
)

type Handler struct {
	pipe      *pipeline.Pipeline
	logger    *slog.Logger
	uploadDir string
}

func New(pipe *pipeline.Pipeline, uploadDir string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		pipe:      pipe,
		logger:    logger,
		uploadDir: uploadDir,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	h.logger.Error(message)
	http.Error(w, message, code)
}

func (h *Handler) ensureUploadDir() error {
	return os.MkdirAll(h.uploadDir, 0o755)
}
