// Package filters builds the host application's audio filter chain from
// derived calibration parameters and applies it through a FilterHost.
package filters

import (
	"github.com/linuxmatters/soundcheck/internal/calibration"
)

// NamePrefix marks every filter this tool manages. Reapplying the chain
// replaces filters with the same name rather than stacking duplicates.
const NamePrefix = "SoundCheck-"

// Host filter kinds, as registered by the streaming application.
const (
	KindNoiseSuppress = "noise_suppress_filter_v2"
	KindNoiseGate     = "noise_gate_filter"
	KindExpander      = "expander_filter"
	KindGain          = "gain_filter"
	KindCompressor    = "compressor_filter"
	KindLimiter       = "limiter_filter"
)

// Fixed stage timings. Gate times are forgiving so breaths don't pump the
// gate; the compressor is fast enough to catch speech transients.
const (
	gateAttackMs  = 25.0
	gateHoldMs    = 200.0
	gateReleaseMs = 150.0

	expanderRatio     = 4.0
	expanderAttackMs  = 10.0
	expanderReleaseMs = 100.0

	compAttackMs  = 6.0
	compReleaseMs = 60.0

	limiterReleaseMs = 60.0

	// The expander opens above the gate so the two can coexist when a
	// user enables both.
	expanderOffsetDb = 10.0
)

// Spec is one filter instance to create on the microphone input.
type Spec struct {
	Kind     string
	Name     string
	Settings map[string]any
}

// Chain builds the ordered filter specs for a parameter bundle. Order
// matters: noise removal first so downstream dynamics don't act on hiss,
// gain before the compressor so its threshold sees the normalized level,
// limiter last as the safety net. Disabled stages are skipped.
func Chain(p calibration.Params) []Spec {
	var specs []Spec

	if p.Stages.NoiseSuppression {
		specs = append(specs, Spec{
			Kind: KindNoiseSuppress,
			Name: NamePrefix + "NoiseSuppression",
			Settings: map[string]any{
				"method":         "rnnoise",
				"suppress_level": p.SuppressDb,
			},
		})
	}

	if p.Stages.NoiseGate {
		specs = append(specs, Spec{
			Kind: KindNoiseGate,
			Name: NamePrefix + "NoiseGate",
			Settings: map[string]any{
				"open_threshold":  p.GateOpenDb,
				"close_threshold": p.GateCloseDb,
				"attack_time":     gateAttackMs,
				"hold_time":       gateHoldMs,
				"release_time":    gateReleaseMs,
			},
		})
	}

	if p.Stages.Expander {
		specs = append(specs, Spec{
			Kind: KindExpander,
			Name: NamePrefix + "Expander",
			Settings: map[string]any{
				"ratio":        expanderRatio,
				"threshold":    p.GateCloseDb + expanderOffsetDb,
				"attack_time":  expanderAttackMs,
				"release_time": expanderReleaseMs,
				"output_gain":  0.0,
				"detector":     "RMS",
				"presets":      "expander",
			},
		})
	}

	if p.Stages.Gain {
		specs = append(specs, Spec{
			Kind: KindGain,
			Name: NamePrefix + "Gain",
			Settings: map[string]any{
				"db": p.GainDb,
			},
		})
	}

	if p.Stages.Compressor {
		specs = append(specs, Spec{
			Kind: KindCompressor,
			Name: NamePrefix + "Compressor",
			Settings: map[string]any{
				"ratio":            p.CompRatio,
				"threshold":        p.CompThresholdDb,
				"attack_time":      compAttackMs,
				"release_time":     compReleaseMs,
				"output_gain":      0.0,
				"sidechain_source": "",
			},
		})
	}

	if p.Stages.Limiter {
		specs = append(specs, Spec{
			Kind: KindLimiter,
			Name: NamePrefix + "Limiter",
			Settings: map[string]any{
				"threshold":    p.LimiterDb,
				"release_time": limiterReleaseMs,
			},
		})
	}

	return specs
}
