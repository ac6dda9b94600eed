// Package analyzer measures live audio levels from a capture source.
package analyzer

import (
	"errors"
	"math"

	"go.uber.org/atomic"

	"github.com/linuxmatters/soundcheck/internal/capture"
)

// smoothingFactor weights each new RMS reading against the running
// average. Higher values react faster but read noisier on a meter.
const smoothingFactor = 0.1

// ErrNoSource is returned by Start when no capture source is given.
var ErrNoSource = errors.New("analyzer: no capture source")

// Analyzer converts a stream of audio frames into smoothed, dB-scaled
// loudness readings. ProcessFrame runs on the capture goroutine; the level
// accessors are safe to call from any goroutine and never block the frame
// path.
//
// RMS and peak are stored in separate atomics and updated independently: a
// reader may pair an RMS from one frame with a peak from the next. For
// metering and calibration that skew is harmless and not worth a lock on
// the audio path.
type Analyzer struct {
	capturing     atomic.Bool
	currentRMSDb  atomic.Float64
	currentPeakDb atomic.Float64
	maxPeakDb     atomic.Float64

	// smoothedRMS is only touched from ProcessFrame, which the source
	// invokes from a single goroutine.
	smoothedRMS float64

	source capture.Source
}

// New returns an idle analyzer with all levels at the silence floor.
func New() *Analyzer {
	a := &Analyzer{}
	a.resetLevels()
	return a
}

// Start begins capturing from the given source. If the analyzer is already
// capturing, the previous capture is stopped first. All levels reset to
// floor values on start.
func (a *Analyzer) Start(src capture.Source) error {
	if src == nil {
		return ErrNoSource
	}

	a.Stop()

	a.resetLevels()
	a.source = src
	src.RegisterFrameCallback(a.ProcessFrame)
	a.capturing.Store(true)

	return nil
}

// Stop ceases receiving frames. It unregisters the callback before
// clearing state, so no frame can arrive against a torn-down analyzer.
// No-op when not capturing.
func (a *Analyzer) Stop() {
	if a.capturing.Load() && a.source != nil {
		a.source.UnregisterFrameCallback()
		a.source = nil
	}
	a.capturing.Store(false)
}

// ProcessFrame ingests one frame of samples. Muted, empty, or
// post-Stop frames are discarded without touching state.
func (a *Analyzer) ProcessFrame(frame capture.Frame) {
	if !a.capturing.Load() || frame.Muted || len(frame.Samples) == 0 {
		return
	}

	rms := CalculateRMS(frame.Samples)

	var peak float64
	for _, s := range frame.Samples {
		if v := math.Abs(float64(s)); v > peak {
			peak = v
		}
	}

	// Smooth RMS only; peak stays instantaneous so transients register.
	a.smoothedRMS = a.smoothedRMS*(1.0-smoothingFactor) + rms*smoothingFactor

	rmsDb := ToDB(a.smoothedRMS)
	peakDb := ToDB(peak)

	a.currentRMSDb.Store(rmsDb)
	a.currentPeakDb.Store(peakDb)

	if peakDb > a.maxPeakDb.Load() {
		a.maxPeakDb.Store(peakDb)
	}
}

// CurrentLevels returns the latest smoothed RMS and instantaneous peak,
// both in dB.
func (a *Analyzer) CurrentLevels() (rmsDb, peakDb float64) {
	return a.currentRMSDb.Load(), a.currentPeakDb.Load()
}

// MaxPeak returns the highest peak in dB seen since the last reset.
func (a *Analyzer) MaxPeak() float64 {
	return a.maxPeakDb.Load()
}

// ResetMaxPeak restarts max-peak tracking from the silence floor.
func (a *Analyzer) ResetMaxPeak() {
	a.maxPeakDb.Store(FloorDB)
}

// Capturing reports whether the analyzer is receiving frames.
func (a *Analyzer) Capturing() bool {
	return a.capturing.Load()
}

func (a *Analyzer) resetLevels() {
	a.smoothedRMS = 0
	a.currentRMSDb.Store(FloorDB)
	a.currentPeakDb.Store(FloorDB)
	a.maxPeakDb.Store(FloorDB)
}
