package model

import "testing"

func TestCoordinateValid(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lng  float64
		want bool
	}{
		{"paris", 48.8584, 2.2945, true},
		{"southern hemisphere", -33.8688, 151.2093, true},
		{"zero pair", 0, 0, false},
		{"near zero pair", 0.0004, -0.0009, false},
		{"near zero lat only", 0.0004, 10.5, true},
		{"lat out of range", 91, 10, false},
		{"lng out of range", 10, -181, false},
		{"boundary", 90, 180, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := GeoCoordinate{Latitude: tt.lat, Longitude: tt.lng}
			if got := c.Valid(); got != tt.want {
				t.Errorf("Valid(%v, %v) = %v, want %v", tt.lat, tt.lng, got, tt.want)
			}
		})
	}
}

func TestProvisional(t *testing.T) {
	for origin, want := range map[string]bool{
		OriginRemote:          false,
		OriginCache:           false,
		OriginGPSOnly:         true,
		OriginOfflineEstimate: true,
	} {
		r := RecognitionResult{Origin: origin}
		if r.Provisional() != want {
			t.Errorf("Provisional() for %q = %v, want %v", origin, r.Provisional(), want)
		}
	}
}
