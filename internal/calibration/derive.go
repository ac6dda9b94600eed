package calibration

import (
	"errors"
	"fmt"

	"github.com/linuxmatters/soundcheck/internal/analyzer"
)

// Derivation tuning constants. Targets follow broadcast speech practice:
// normalize average level to -18dBFS RMS while keeping the loudest
// observed peak under a -3dB ceiling.
const (
	TargetRMSDb = -18.0

	peakCeilingDb = -3.0
	gainLimitDb   = 18.0

	// Compressor ratio brackets by measured dynamic range.
	rangeWideDb   = 14.0
	rangeNarrowDb = 8.0
	ratioWide     = 6.0
	ratioDefault  = 4.0
	ratioNarrow   = 3.0

	compThresholdOffsetDb = 5.0
	compThresholdMinDb    = -45.0
	compThresholdMaxDb    = -10.0

	// Gate thresholds: open above the noise floor with margin, but never
	// so high that quiet program speech gets cut.
	gateNoiseMarginDb  = 15.0
	gateSpeechGuardDb  = 25.0
	gateOpenMinDb      = -60.0
	gateOpenMaxDb      = -10.0
	gateHysteresisDb   = 6.0
	gateCloseMinDb     = -60.0
	gateCloseMaxDb     = -12.0
	LimiterThresholdDb = -6.0
	DefaultSuppressDb  = -10.0
)

// ErrIncomplete is returned when derivation runs before every required
// step has been recorded.
var ErrIncomplete = errors.New("incomplete calibration")

// Toggles selects which processing stages the derived bundle enables.
// They pass through derivation untouched; the derived values are computed
// regardless so the wizard can preview disabled stages.
type Toggles struct {
	NoiseSuppression bool
	NoiseGate        bool
	Expander         bool
	Gain             bool
	Compressor       bool
	Limiter          bool
}

// DefaultToggles matches the wizard defaults: everything on except the
// expander, which is an alternative to the gate rather than a companion.
func DefaultToggles() Toggles {
	return Toggles{
		NoiseSuppression: true,
		NoiseGate:        true,
		Gain:             true,
		Compressor:       true,
		Limiter:          true,
	}
}

// Options carries the user's stage choices into derivation.
type Options struct {
	Toggles Toggles
	// SuppressDb is the RNNoise suppression level (-5 low, -10 medium,
	// -15 high). Zero selects the default.
	SuppressDb float64
}

// Params is the named filter parameter bundle handed to the applier. The
// measured aggregates ride along for display and reporting.
type Params struct {
	GainDb          float64
	CompThresholdDb float64
	CompRatio       float64
	GateOpenDb      float64
	GateCloseDb     float64
	SuppressDb      float64
	LimiterDb       float64

	AvgProgramDb   float64
	LoudPeakDb     float64
	DynamicRangeDb float64
	NoiseFloorDb   float64

	Stages Toggles
}

// Derive computes filter parameters from a completed set of step results.
// It is a pure function: identical step data always yields an identical
// bundle. The noise step and every program step must be recorded;
// otherwise ErrIncomplete is returned and no bundle is produced.
func Derive(steps []StepResult, proto Protocol, opts Options) (Params, error) {
	if err := proto.Validate(); err != nil {
		return Params{}, err
	}
	if len(steps) != proto.Steps {
		return Params{}, fmt.Errorf("calibration: have %d steps, protocol wants %d", len(steps), proto.Steps)
	}

	required := append([]int{proto.NoiseStep}, proto.ProgramSteps...)
	for _, step := range required {
		if !steps[step-1].Recorded {
			return Params{}, fmt.Errorf("%w: step %d not recorded", ErrIncomplete, step)
		}
	}

	// Program level: linear-domain mean of the program steps, loudest
	// observed program peak, and the spread between the last (loudest)
	// and first (quietest) program samples.
	var sumLinear float64
	loudPeakDb := SentinelDB
	for _, step := range proto.ProgramSteps {
		r := steps[step-1]
		sumLinear += analyzer.FromDB(r.AverageRMSDb)
		if r.MaxPeakDb > loudPeakDb {
			loudPeakDb = r.MaxPeakDb
		}
	}
	avgProgramDb := analyzer.ToDB(sumLinear / float64(len(proto.ProgramSteps)))

	first := proto.ProgramSteps[0]
	last := proto.ProgramSteps[len(proto.ProgramSteps)-1]
	dynamicRangeDb := steps[last-1].AverageRMSDb - steps[first-1].AverageRMSDb

	// Gain normalizes the average program level to the broadcast target,
	// then backs off if the loudest observed peak would land above the
	// headroom ceiling after that gain. The correction is applied once;
	// the second clamp bounds any residual overshoot.
	gainDb := clamp(TargetRMSDb-avgProgramDb, -gainLimitDb, gainLimitDb)
	if predicted := loudPeakDb + gainDb; predicted > peakCeilingDb {
		gainDb -= predicted - peakCeilingDb
	}
	gainDb = clamp(gainDb, -gainLimitDb, gainLimitDb)

	// Wider natural dynamic range needs more compression to tame it.
	ratio := ratioDefault
	switch {
	case dynamicRangeDb > rangeWideDb:
		ratio = ratioWide
	case dynamicRangeDb < rangeNarrowDb:
		ratio = ratioNarrow
	}
	thresholdDb := clamp(avgProgramDb-compThresholdOffsetDb, compThresholdMinDb, compThresholdMaxDb)

	noiseFloorDb := steps[proto.NoiseStep-1].AverageRMSDb
	gateOpenDb := clamp(
		max(noiseFloorDb+gateNoiseMarginDb, avgProgramDb-gateSpeechGuardDb),
		gateOpenMinDb, gateOpenMaxDb,
	)
	gateCloseDb := clamp(gateOpenDb-gateHysteresisDb, gateCloseMinDb, gateCloseMaxDb)

	suppressDb := opts.SuppressDb
	if suppressDb == 0 {
		suppressDb = DefaultSuppressDb
	}

	return Params{
		GainDb:          gainDb,
		CompThresholdDb: thresholdDb,
		CompRatio:       ratio,
		GateOpenDb:      gateOpenDb,
		GateCloseDb:     gateCloseDb,
		SuppressDb:      suppressDb,
		LimiterDb:       LimiterThresholdDb,
		AvgProgramDb:    avgProgramDb,
		LoudPeakDb:      loudPeakDb,
		DynamicRangeDb:  dynamicRangeDb,
		NoiseFloorDb:    noiseFloorDb,
		Stages:          opts.Toggles,
	}, nil
}

// Derive computes the bundle from this session's recorded steps.
func (s *Session) Derive(opts Options) (Params, error) {
	return Derive(s.steps, s.proto, opts)
}

// clamp restricts val to the range [lo, hi].
func clamp(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
