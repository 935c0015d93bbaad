package recog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pic2nav/snapsync/internal/model"
)

func testImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "img.jpg")
	if err := os.WriteFile(path, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatalf("write test image: %v", err)
	}
	return path
}

func TestRecognizeSuccess(t *testing.T) {
	var gotLat, gotLng string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if _, _, err := r.FormFile("image"); err != nil {
			t.Errorf("missing image part: %v", err)
		}
		gotLat = r.FormValue("latitude")
		gotLng = r.FormValue("longitude")
		json.NewEncoder(w).Encode(map[string]any{
			"success":    true,
			"name":       "Eiffel Tower",
			"address":    "Champ de Mars, Paris",
			"latitude":   48.8584,
			"longitude":  2.2945,
			"confidence": 0.92,
			"category":   "landmark",
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second)
	hint := &model.GeoCoordinate{Latitude: 48.86, Longitude: 2.29}
	res, err := c.Recognize(context.Background(), Request{ImagePath: testImage(t), Hint: hint})
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}

	if res.Name != "Eiffel Tower" || !res.Success {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Origin != model.OriginRemote {
		t.Errorf("origin = %q, want remote", res.Origin)
	}
	if res.Location == nil || res.Location.Latitude != 48.8584 {
		t.Errorf("location not decoded: %+v", res.Location)
	}
	if res.ID == "" {
		t.Error("result must carry an ID")
	}
	if gotLat == "" || gotLng == "" {
		t.Error("GPS hint was not forwarded")
	}
}

func TestRecognizeServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second)
	_, err := c.Recognize(context.Background(), Request{ImagePath: testImage(t)})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsPermanent(err) {
		t.Error("5xx must classify as transient")
	}
}

func TestRecognizeRejectionIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unrecognized image", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second)
	_, err := c.Recognize(context.Background(), Request{ImagePath: testImage(t)})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsPermanent(err) {
		t.Error("well-formed 4xx rejection must classify as permanent")
	}
}

func TestRecognizeFailureBodyIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "no landmark found"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second)
	_, err := c.Recognize(context.Background(), Request{ImagePath: testImage(t)})
	if !IsPermanent(err) {
		t.Errorf("success=false body must classify as permanent, got %v", err)
	}
}

func TestRecognizeUnreachableIsTransient(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", time.Second)
	_, err := c.Recognize(context.Background(), Request{ImagePath: testImage(t)})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsPermanent(err) {
		t.Error("connection failure must classify as transient")
	}
}

func TestRecognizeMissingImage(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", time.Second)
	_, err := c.Recognize(context.Background(), Request{ImagePath: "/nonexistent.jpg"})
	if err == nil {
		t.Fatal("expected error for missing payload")
	}
}
