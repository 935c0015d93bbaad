// Package model defines the core pipeline data types.
package model

import (
	"math"
	"time"
)

// GeoCoordinate is a validated decimal latitude/longitude pair.
// Only the exif normalizer produces values of this type.
type GeoCoordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// nearZeroEpsilon rejects the (≈0, ≈0) placeholder pairs that malformed
// capture metadata commonly carries instead of a real fix.
const nearZeroEpsilon = 0.001

// Valid reports whether the pair is a plausible GPS fix: in range and not a
// zero/near-zero sentinel.
func (c GeoCoordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return false
	}
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return false
	}
	if c.Latitude == 0 && c.Longitude == 0 {
		return false
	}
	if math.Abs(c.Latitude) <= nearZeroEpsilon && math.Abs(c.Longitude) <= nearZeroEpsilon {
		return false
	}
	return true
}

// RawMetadata is the loosely-typed key/value bag attached to an image at
// capture time. Its shape varies by device, gallery import, and app version;
// no fixed schema is ever assumed.
type RawMetadata map[string]any

// Result origins.
const (
	OriginRemote          = "remote"
	OriginCache           = "cache"
	OriginGPSOnly         = "gps-only"
	OriginOfflineEstimate = "offline-estimate"
)

// RecognitionResult is a single recognition outcome. Immutable after
// creation; reconciliation replaces records, it never mutates them.
type RecognitionResult struct {
	ID         string         `json:"id"`
	Success    bool           `json:"success"`
	Name       string         `json:"name,omitempty"`
	Address    string         `json:"address,omitempty"`
	Location   *GeoCoordinate `json:"location,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	Category   string         `json:"category,omitempty"`
	Origin     string         `json:"origin"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Provisional reports whether the result was produced locally and may later
// be superseded by an authoritative remote result.
func (r RecognitionResult) Provisional() bool {
	return r.Origin == OriginGPSOnly || r.Origin == OriginOfflineEstimate
}

// CacheEntry pairs a fingerprint with a previously obtained result. Owned
// exclusively by the result cache.
type CacheEntry struct {
	Fingerprint string            `json:"fingerprint"`
	Result      RecognitionResult `json:"result"`
	InsertedAt  time.Time         `json:"inserted_at"`
}

// Queue item states.
const (
	StatusPending         = "pending"
	StatusRetrying        = "retrying"
	StatusFailedPermanent = "failed-permanent"
)

// QueueItem is a submission that could not complete synchronously. Items are
// removed on success and retained as failed-permanent after the retry
// ceiling, so a failed scan stays visible until the user dismisses it.
type QueueItem struct {
	ID               string      `json:"id"`
	ImageRef         string      `json:"image_ref"`
	MetadataSnapshot RawMetadata `json:"metadata_snapshot,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	Attempts         int         `json:"attempts"`
	Status           string      `json:"status"`
}
