package analyzer

import (
	"math"
	"testing"
)

func TestToDB(t *testing.T) {
	tests := []struct {
		name      string
		amplitude float64
		want      float64
	}{
		{"full scale", 1.0, 0.0},
		{"half scale", 0.5, 20.0 * math.Log10(0.5)}, // ~ -6.02
		{"tenth scale", 0.1, -20.0},
		{"silence floor", 0.0, FloorDB},
		{"just below silence threshold", 9e-6, FloorDB},
		{"just above silence threshold", 1.1e-5, 20.0 * math.Log10(1.1e-5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDB(tt.amplitude)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ToDB(%v) = %v, want %v", tt.amplitude, got, tt.want)
			}
		})
	}
}

func TestFromDBRoundTrip(t *testing.T) {
	for _, db := range []float64{0, -6, -18, -40, -60, -90} {
		got := ToDB(FromDB(db))
		if math.Abs(got-db) > 1e-9 {
			t.Errorf("ToDB(FromDB(%v)) = %v, want %v", db, got, db)
		}
	}
}

func TestCalculateRMS(t *testing.T) {
	tests := []struct {
		name    string
		samples []float32
		want    float64
		tol     float64
	}{
		{"empty buffer", nil, 0, 0},
		{"all zeros", make([]float32, 1024), 0, 0},
		{"constant amplitude", []float32{0.5, -0.5, 0.5, -0.5}, 0.5, 1e-9},
		{"single sample", []float32{0.25}, 0.25, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateRMS(tt.samples)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("CalculateRMS() = %v, want %v", got, tt.want)
			}
		})
	}
}

// A full-cycle sine of amplitude a has RMS a/sqrt(2).
func TestCalculateRMSSine(t *testing.T) {
	const amplitude = 0.8
	samples := make([]float32, 48000)
	for i := range samples {
		samples[i] = float32(amplitude * math.Sin(2.0*math.Pi*float64(i)/float64(len(samples))))
	}

	want := amplitude / math.Sqrt2
	got := CalculateRMS(samples)
	if math.Abs(got-want) > 1e-4 {
		t.Errorf("CalculateRMS(sine) = %v, want %v", got, want)
	}
}

func TestMeterPercent(t *testing.T) {
	tests := []struct {
		name string
		db   float64
		want int
	}{
		{"full scale", 0, 100},
		{"bottom of scale", -60, 0},
		{"midpoint", -30, 50},
		{"clamps above", 6, 100},
		{"clamps below", -100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MeterPercent(tt.db); got != tt.want {
				t.Errorf("MeterPercent(%v) = %d, want %d", tt.db, got, tt.want)
			}
		})
	}
}
