package exif

import (
	"strings"

	"github.com/pic2nav/snapsync/internal/model"
)

// Estimate is a coarse, low-confidence location guess derived from device
// identification strings. It exists so the pipeline can show something while
// offline; it is never a substitute for a real GPS fix and always carries a
// confidence well below one.
type Estimate struct {
	Location   model.GeoCoordinate
	Confidence float64
	Method     string
}

// regionHint associates a device identification substring with a regional
// centroid. The table is deliberately tiny: it encodes the handful of
// regional hardware variants the product has actual evidence for, and it
// should not grow without new evidence.
type regionHint struct {
	match      string
	region     string
	centroid   model.GeoCoordinate
	confidence float64
}

var deviceRegions = []regionHint{
	// Lagos-market device brands observed in the capture data.
	{"tecno", "lagos", model.GeoCoordinate{Latitude: 6.5244, Longitude: 3.3792}, 0.25},
	{"infinix", "lagos", model.GeoCoordinate{Latitude: 6.5244, Longitude: 3.3792}, 0.25},
	{"itel", "lagos", model.GeoCoordinate{Latitude: 6.5244, Longitude: 3.3792}, 0.2},
}

// identityKeys are the metadata fields worth matching against the region
// table, in the order they are checked.
var identityKeys = []string{"Make", "Model", "Software"}

// EstimateCoordinate produces a device-based location estimate when meta
// carries no usable GPS, or nil when no table entry matches. The returned
// confidence never exceeds 0.3.
func EstimateCoordinate(meta model.RawMetadata) *Estimate {
	if len(meta) == 0 {
		return nil
	}
	for _, key := range identityKeys {
		s, ok := meta[key].(string)
		if !ok || s == "" {
			continue
		}
		needle := strings.ToLower(s)
		for _, hint := range deviceRegions {
			if strings.Contains(needle, hint.match) {
				return &Estimate{
					Location:   hint.centroid,
					Confidence: hint.confidence,
					Method:     "device-region:" + hint.region,
				}
			}
		}
	}
	return nil
}
