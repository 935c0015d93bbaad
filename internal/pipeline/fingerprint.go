package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strconv"
	"time"

	"github.com/pic2nav/snapsync/internal/model"
)

// Fingerprint derives the cache key for an image. It is deliberately keyed
// on image identity (file reference + capture time), not pixel content, so
// re-imports of a visually identical picture get distinct entries. Changing
// this to a content hash would change dedup behavior across the installed
// base, so it stays an identity key.
func Fingerprint(imageRef string, capturedAt time.Time) string {
	sum := sha256.Sum256([]byte(imageRef + "|" + strconv.FormatInt(capturedAt.UnixNano(), 10)))
	return hex.EncodeToString(sum[:])[:16]
}

// metadata fields that may carry the capture timestamp, in probe order.
var captureTimeKeys = []string{"DateTimeOriginal", "CreateDate", "DateTime"}

// capture timestamp layouts seen in EXIF output.
var captureTimeLayouts = []string{
	"2006:01:02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// captureTime resolves the capture instant used for fingerprinting:
// metadata timestamp first, then file modification time, then the zero
// time. The resolution is deterministic so the submit path and a later
// drain compute the same fingerprint from the same snapshot.
func captureTime(imageRef string, meta model.RawMetadata) time.Time {
	for _, key := range captureTimeKeys {
		s, ok := meta[key].(string)
		if !ok || s == "" {
			continue
		}
		for _, layout := range captureTimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
	}
	if info, err := os.Stat(imageRef); err == nil {
		return info.ModTime().UTC()
	}
	return time.Time{}
}
