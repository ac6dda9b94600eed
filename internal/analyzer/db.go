package analyzer

import "math"

const (
	// FloorDB is reported for effectively silent signals. It also serves
	// as the sentinel for unrecorded calibration measurements.
	FloorDB = -100.0

	// silenceAmplitude is the linear amplitude below which dB conversion
	// bottoms out at FloorDB, protecting against log of zero.
	silenceAmplitude = 1e-5

	// Meter display range: -60dB maps to 0%, 0dBFS maps to 100%.
	meterRangeDB = 60.0
)

// ToDB converts a linear amplitude to decibels full scale.
func ToDB(amplitude float64) float64 {
	if amplitude < silenceAmplitude {
		return FloorDB
	}
	return 20.0 * math.Log10(amplitude)
}

// FromDB converts decibels back to linear amplitude. Inverse of ToDB for
// values above the silence floor.
func FromDB(db float64) float64 {
	return math.Pow(10.0, db/20.0)
}

// CalculateRMS returns the root-mean-square amplitude of a sample buffer.
// The sum of squares is accumulated in float64 so long buffers of small
// float32 samples don't lose precision. An empty buffer yields 0.
func CalculateRMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// MeterPercent maps a dB reading onto the 0-100 level meter scale.
func MeterPercent(db float64) int {
	percent := int((db + meterRangeDB) / meterRangeDB * 100.0)
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
