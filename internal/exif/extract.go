// Package exif turns raw, loosely-typed image metadata into validated GPS
// coordinates. Capture metadata arrives in several historical shapes, so
// extraction runs a fixed-order list of probes and the first one that yields
// two finite numbers wins.
package exif

import (
	"strconv"
	"strings"

	"github.com/pic2nav/snapsync/internal/model"
)

// A probe inspects one known metadata shape and reports the raw pair it
// found. Probes never validate range; that happens once, after the winning
// probe.
type probe struct {
	name    string
	extract func(meta model.RawMetadata) (lat, lng float64, ok bool)
}

// probes is the priority order. Adding support for a new device shape means
// appending one entry here.
var probes = []probe{
	{"decimal", probeDecimal},
	{"dms", probeDMS},
	{"gps-object", probeGPSObject},
	{"location-object", probeLocation},
}

// ExtractCoordinate parses meta into a validated coordinate, or nil when no
// valid GPS fix is present. Absence of GPS is a normal outcome, not an
// error; malformed input never panics.
func ExtractCoordinate(meta model.RawMetadata) *model.GeoCoordinate {
	if len(meta) == 0 {
		return nil
	}
	for _, p := range probes {
		lat, lng, ok := p.extract(meta)
		if !ok {
			continue
		}
		c := model.GeoCoordinate{Latitude: lat, Longitude: lng}
		if !c.Valid() {
			return nil
		}
		return &c
	}
	return nil
}

// probeDecimal handles a direct numeric GPSLatitude/GPSLongitude pair with
// optional hemisphere reference fields.
func probeDecimal(meta model.RawMetadata) (float64, float64, bool) {
	lat, okLat := toFloat(meta["GPSLatitude"])
	lng, okLng := toFloat(meta["GPSLongitude"])
	if !okLat || !okLng {
		return 0, 0, false
	}
	lat = applyRef(lat, meta["GPSLatitudeRef"])
	lng = applyRef(lng, meta["GPSLongitudeRef"])
	return lat, lng, true
}

// probeDMS handles degrees/minutes/seconds triples, converted via
// dd = deg + min/60 + sec/3600 with the sign taken from the reference field.
func probeDMS(meta model.RawMetadata) (float64, float64, bool) {
	lat, okLat := dmsToDecimal(meta["GPSLatitude"])
	lng, okLng := dmsToDecimal(meta["GPSLongitude"])
	if !okLat || !okLng {
		return 0, 0, false
	}
	lat = applyRef(lat, meta["GPSLatitudeRef"])
	lng = applyRef(lng, meta["GPSLongitudeRef"])
	return lat, lng, true
}

// probeGPSObject handles a nested "GPS" info object carrying its own lat/lng
// fields, under either the long or the short key names.
func probeGPSObject(meta model.RawMetadata) (float64, float64, bool) {
	obj, ok := toMap(meta["GPS"])
	if !ok {
		return 0, 0, false
	}
	lat, okLat := toFloat(obj["GPSLatitude"])
	lng, okLng := toFloat(obj["GPSLongitude"])
	if !okLat || !okLng {
		lat, okLat = toFloat(obj["Latitude"])
		lng, okLng = toFloat(obj["Longitude"])
	}
	if !okLat || !okLng {
		return 0, 0, false
	}
	lat = applyRef(lat, obj["GPSLatitudeRef"])
	lng = applyRef(lng, obj["GPSLongitudeRef"])
	return lat, lng, true
}

// probeLocation handles the plain {latitude, longitude} location object the
// iOS capture path attaches.
func probeLocation(meta model.RawMetadata) (float64, float64, bool) {
	obj, ok := toMap(meta["location"])
	if !ok {
		return 0, 0, false
	}
	lat, okLat := toFloat(obj["latitude"])
	lng, okLng := toFloat(obj["longitude"])
	if !okLat || !okLng {
		return 0, 0, false
	}
	return lat, lng, true
}

// applyRef negates the magnitude for southern/western hemisphere references.
func applyRef(v float64, ref any) float64 {
	s, ok := ref.(string)
	if !ok {
		return v
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "S", "W", "SOUTH", "WEST":
		if v > 0 {
			return -v
		}
	}
	return v
}

// dmsToDecimal converts a deg/min/sec slice to decimal degrees. A
// single-element slice is treated as already decimal, which some exporters
// produce.
func dmsToDecimal(v any) (float64, bool) {
	parts := toFloatSlice(v)
	switch {
	case len(parts) >= 3:
		return parts[0] + parts[1]/60 + parts[2]/3600, true
	case len(parts) == 2:
		return parts[0] + parts[1]/60, true
	case len(parts) == 1:
		return parts[0], true
	}
	return 0, false
}

func toFloatSlice(v any) []float64 {
	var raw []any
	switch t := v.(type) {
	case []any:
		raw = t
	case []float64:
		return t
	default:
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, e := range raw {
		f, ok := toFloat(e)
		if !ok {
			return nil
		}
		out = append(out, f)
	}
	return out
}

// toFloat coerces the numeric encodings seen in the wild: JSON float64,
// integer variants, and numeric strings.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func toMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case model.RawMetadata:
		return t, true
	}
	return nil, false
}
