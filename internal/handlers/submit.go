package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/pic2nav/snapsync/internal/model"
	"github.com/pic2nav/snapsync/internal/pipeline"
)

// maxUploadBytes bounds the multipart image part.
const maxUploadBytes = 20 * 1024 * 1024

// HandleSubmit accepts a multipart capture: an "image" file part and an
// optional "metadata" field carrying the raw EXIF bag as JSON. The response
// is the recognition result, whether authoritative, cached, or provisional.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		file, header, err = r.FormFile("file")
		if err != nil {
			h.writeError(w, "Failed to read image: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	var meta model.RawMetadata
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			h.writeError(w, "Invalid metadata JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	path, err := h.saveUpload(file, header.Filename)
	if err != nil {
		h.writeError(w, "Failed to store upload: "+err.Error(), http.StatusInternalServerError)
		return
	}

	res, err := h.pipe.Submit(r.Context(), pipeline.Submission{ImagePath: path, Metadata: meta})
	if err != nil {
		if errors.Is(err, r.Context().Err()) && r.Context().Err() != nil {
			// Client went away mid-submission; nothing useful to write.
			return
		}
		h.writeError(w, "Submission failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.writeJSON(w, res)
}

func (h *Handler) saveUpload(src io.Reader, original string) (string, error) {
	if err := h.ensureUploadDir(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = ".jpg"
	}
	path := filepath.Join(h.uploadDir, ulid.Make().String()+ext)

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, maxUploadBytes)); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
