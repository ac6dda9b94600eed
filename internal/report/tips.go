package report

import (
	"fmt"
	"sort"

	"github.com/linuxmatters/soundcheck/internal/calibration"
)

// Tip is one piece of actionable recording advice derived from the
// calibration measurements.
type Tip struct {
	Priority int    // higher = more important (1-10)
	Message  string // human-readable advice
	RuleID   string // identifier for testing
}

// MaxTips caps the advice list so the report stays readable.
const MaxTips = 5

// Tips analyses the session results and returns prioritised advice.
func Tips(agg calibration.Aggregate, p calibration.Params) []Tip {
	if agg.Recorded == 0 {
		return nil
	}

	var tips []Tip
	fired := make(map[string]bool)

	rules := []func(calibration.Aggregate, calibration.Params) *Tip{
		tipClipping,
		tipGainTooLow,
		tipGainLow,
		tipNoiseFloor,
		tipMainsHum,
		tipPoorSNR,
		tipWideDynamics,
	}
	for _, rule := range rules {
		if tip := rule(agg, p); tip != nil {
			tips = append(tips, *tip)
			fired[tip.RuleID] = true
		}
	}

	tips = applyExclusions(tips, fired)

	sort.Slice(tips, func(i, j int) bool {
		return tips[i].Priority > tips[j].Priority
	})
	if len(tips) > MaxTips {
		tips = tips[:MaxTips]
	}
	return tips
}

// applyExclusions drops tips made redundant by a more specific one.
func applyExclusions(tips []Tip, fired map[string]bool) []Tip {
	var result []Tip
	for _, tip := range tips {
		switch tip.RuleID {
		case "gain_too_low", "gain_low":
			if fired["clipping"] {
				continue
			}
		case "poor_snr":
			if fired["noise_floor_high"] {
				continue
			}
		}
		result = append(result, tip)
	}
	return result
}

// tipClipping fires when the loudest program peak is already close to
// full scale before any gain is added.
func tipClipping(_ calibration.Aggregate, p calibration.Params) *Tip {
	if p.LoudPeakDb <= -1.0 {
		return nil
	}
	return &Tip{
		Priority: 10,
		RuleID:   "clipping",
		Message:  "Your loudest speech is clipping or very close to it. Turn your microphone gain down by 6-10 dB and recalibrate.",
	}
}

// tipGainTooLow fires when the average program level is far below the
// target and the derived gain hit its limit.
func tipGainTooLow(_ calibration.Aggregate, p calibration.Params) *Tip {
	if p.AvgProgramDb >= -40.0 {
		return nil
	}
	needed := calibration.TargetRMSDb - p.AvgProgramDb
	return &Tip{
		Priority: 10,
		RuleID:   "gain_too_low",
		Message:  fmt.Sprintf("Your microphone gain is too low - try increasing it by about %.0f dB at the source instead of relying on the gain filter.", needed),
	}
}

// tipGainLow fires when the level is moderately quiet.
func tipGainLow(_ calibration.Aggregate, p calibration.Params) *Tip {
	if p.AvgProgramDb < -40.0 || p.AvgProgramDb >= -30.0 {
		return nil
	}
	return &Tip{
		Priority: 7,
		RuleID:   "gain_low",
		Message:  "Your recording is a bit quiet. A few dB more microphone gain would leave the filters less to do.",
	}
}

// tipNoiseFloor fires when the measured room noise is elevated.
func tipNoiseFloor(_ calibration.Aggregate, p calibration.Params) *Tip {
	switch {
	case p.NoiseFloorDb > -45.0:
		return &Tip{
			Priority: 9,
			RuleID:   "noise_floor_high",
			Message:  fmt.Sprintf("Background noise is high (%.0f dBFS) - try turning off fans, air conditioning, or other appliances before streaming.", p.NoiseFloorDb),
		}
	case p.NoiseFloorDb > -55.0:
		return &Tip{
			Priority: 6,
			RuleID:   "noise_floor_moderate",
			Message:  fmt.Sprintf("Background noise is slightly elevated (%.0f dBFS) - if possible, turn off any fans or appliances nearby.", p.NoiseFloorDb),
		}
	}
	return nil
}

// tipMainsHum fires on an audible noise floor and names the local mains
// frequency so the listener knows what hum to listen for.
func tipMainsHum(_ calibration.Aggregate, p calibration.Params) *Tip {
	if p.NoiseFloorDb < -65.0 || p.NoiseFloorDb > -45.0 {
		return nil
	}
	return &Tip{
		Priority: 5,
		RuleID:   "mains_hum",
		Message: fmt.Sprintf("If the background noise is a constant %d Hz hum, check for nearby power supplies, monitors, or chargers and move them away from your microphone.",
			MainsFrequency()),
	}
}

// tipPoorSNR fires when the gap between speech and room noise is small.
func tipPoorSNR(_ calibration.Aggregate, p calibration.Params) *Tip {
	snr := p.AvgProgramDb - p.NoiseFloorDb
	if snr >= 20.0 {
		return nil
	}
	return &Tip{
		Priority: 8,
		RuleID:   "poor_snr",
		Message:  fmt.Sprintf("The gap between your voice and the background noise is only %.0f dB. Move closer to your microphone - about a hand's width (15-20cm) is ideal.", snr),
	}
}

// tipWideDynamics fires when the quiet-to-loud program spread is wide.
func tipWideDynamics(_ calibration.Aggregate, p calibration.Params) *Tip {
	if p.DynamicRangeDb <= 18.0 {
		return nil
	}
	return &Tip{
		Priority: 4,
		RuleID:   "wide_dynamics",
		Message:  "Your speaking volume varies a lot between quiet and loud passages. The compressor will help, but a steadier delivery and mic distance will sound more natural.",
	}
}

