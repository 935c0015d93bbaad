package recog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/pic2nav/snapsync/internal/model"
)

// HTTPClient calls the recognition service over HTTP with a multipart image
// upload, the same wire shape the capture app uses.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient builds a client for the recognition endpoint at baseURL.
// timeout bounds each attempt; exceeding it reads as a transient failure.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// wire response shape of the recognition endpoint.
type recognizeResponse struct {
	Success    bool    `json:"success"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category"`
	Error      string  `json:"error"`
}

func (c *HTTPClient) Recognize(ctx context.Context, req Request) (*model.RecognitionResult, error) {
	body, contentType, err := buildForm(req)
	if err != nil {
		return nil, &Error{Kind: Transient, Msg: "build request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, body)
	if err != nil {
		return nil, &Error{Kind: Transient, Msg: "create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("User-Agent", "snapsync/1.0")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// Transport errors and timeouts are always retryable.
		return nil, &Error{Kind: Transient, Msg: "send request", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		raw, _ := io.ReadAll(resp.Body)
		return nil, &Error{Kind: Transient, Msg: fmt.Sprintf("server error %d: %s", resp.StatusCode, raw)}
	case resp.StatusCode >= 400:
		// A well-formed rejection: the service understood the image and
		// declined it. Retrying cannot help.
		raw, _ := io.ReadAll(resp.Body)
		return nil, &Error{Kind: Permanent, Msg: fmt.Sprintf("rejected %d: %s", resp.StatusCode, raw)}
	}

	var wire recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, &Error{Kind: Transient, Msg: "decode response", Err: err}
	}
	if !wire.Success {
		return nil, &Error{Kind: Permanent, Msg: wire.Error}
	}

	result := &model.RecognitionResult{
		ID:         ulid.Make().String(),
		Success:    true,
		Name:       wire.Name,
		Address:    wire.Address,
		Confidence: wire.Confidence,
		Category:   wire.Category,
		Origin:     model.OriginRemote,
		CreatedAt:  time.Now().UTC(),
	}
	loc := model.GeoCoordinate{Latitude: wire.Latitude, Longitude: wire.Longitude}
	if loc.Valid() {
		result.Location = &loc
	}
	return result, nil
}

func buildForm(req Request) (*bytes.Buffer, string, error) {
	f, err := os.Open(req.ImagePath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("image", filepath.Base(req.ImagePath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}

	if req.Hint != nil {
		w.WriteField("latitude", strconv.FormatFloat(req.Hint.Latitude, 'f', -1, 64))
		w.WriteField("longitude", strconv.FormatFloat(req.Hint.Longitude, 'f', -1, 64))
		w.WriteField("hasImageGPS", "true")
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
