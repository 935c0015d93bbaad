package pipeline

import (
	"testing"
	"time"

	"github.com/pic2nav/snapsync/internal/model"
)

func TestFingerprintDeterministic(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	a := Fingerprint("/photos/img.jpg", at)
	b := Fingerprint("/photos/img.jpg", at)
	if a != b {
		t.Errorf("same inputs produced %q and %q", a, b)
	}
	if len(a) != 16 {
		t.Errorf("fingerprint length = %d, want 16", len(a))
	}
}

func TestFingerprintKeyedOnIdentity(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if Fingerprint("/photos/a.jpg", at) == Fingerprint("/photos/b.jpg", at) {
		t.Error("different refs must not collide")
	}
	if Fingerprint("/photos/a.jpg", at) == Fingerprint("/photos/a.jpg", at.Add(time.Second)) {
		t.Error("different capture times must not collide")
	}
}

func TestCaptureTimeFromMetadata(t *testing.T) {
	tests := []struct {
		name string
		meta model.RawMetadata
		want time.Time
	}{
		{
			name: "exif colon layout",
			meta: model.RawMetadata{"DateTimeOriginal": "2024:06:01 12:30:00"},
			want: time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
		},
		{
			name: "rfc3339",
			meta: model.RawMetadata{"CreateDate": "2024-06-01T12:30:00Z"},
			want: time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
		},
		{
			name: "original wins over fallback keys",
			meta: model.RawMetadata{
				"DateTimeOriginal": "2024:06:01 12:30:00",
				"DateTime":         "2020:01:01 00:00:00",
			},
			want: time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := captureTime("/nonexistent.jpg", tt.meta)
			if !got.Equal(tt.want) {
				t.Errorf("captureTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCaptureTimeFallsBackToModTime(t *testing.T) {
	path := writeImage(t, "mod.jpg")

	got := captureTime(path, model.RawMetadata{"DateTimeOriginal": "not a timestamp"})
	if got.IsZero() {
		t.Fatal("expected mod time fallback, got zero time")
	}

	// Missing file and no metadata: zero time, still deterministic.
	if !captureTime("/nonexistent.jpg", nil).IsZero() {
		t.Error("expected zero time for missing file without metadata")
	}
}
