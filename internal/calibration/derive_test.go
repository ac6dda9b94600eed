package calibration

import (
	"errors"
	"math"
	"testing"
)

// makeSteps builds a full result set for the default protocol with the
// given averages on the noise and program steps. Peaks default to 10dB
// above the step average.
func makeSteps(proto Protocol, noiseDb float64, programDb []float64) []StepResult {
	steps := make([]StepResult, proto.Steps)
	for i := range steps {
		steps[i] = StepResult{AverageRMSDb: -35, MaxPeakDb: -25, Recorded: true}
	}
	steps[proto.NoiseStep-1] = StepResult{AverageRMSDb: noiseDb, MaxPeakDb: noiseDb + 5, Recorded: true}
	for i, step := range proto.ProgramSteps {
		steps[step-1] = StepResult{AverageRMSDb: programDb[i], MaxPeakDb: programDb[i] + 10, Recorded: true}
	}
	return steps
}

func TestDeriveTypicalVoice(t *testing.T) {
	proto := DefaultProtocol()
	steps := makeSteps(proto, -60, []float64{-30, -28, -26})
	// Loudest program peak well below the ceiling even after gain.
	steps[5].MaxPeakDb = -16

	p, err := Derive(steps, proto, Options{Toggles: DefaultToggles()})
	if err != nil {
		t.Fatalf("Derive() error: %v", err)
	}

	// Program level is the linear-domain mean of -30/-28/-26, not -28.
	wantAvg := -27.84716740535695
	if math.Abs(p.AvgProgramDb-wantAvg) > 1e-9 {
		t.Errorf("AvgProgramDb = %v, want %v", p.AvgProgramDb, wantAvg)
	}
	wantGain := -18.0 - wantAvg // ~9.85, peak -16+9.85 stays under -3
	if math.Abs(p.GainDb-wantGain) > 1e-9 {
		t.Errorf("GainDb = %v, want %v", p.GainDb, wantGain)
	}

	// Range -26 - (-30) = 4dB is narrow speech, light ratio.
	if p.DynamicRangeDb != 4.0 {
		t.Errorf("DynamicRangeDb = %v, want 4", p.DynamicRangeDb)
	}
	if p.CompRatio != 3.0 {
		t.Errorf("CompRatio = %v, want 3", p.CompRatio)
	}
	wantThreshold := wantAvg - 5.0
	if math.Abs(p.CompThresholdDb-wantThreshold) > 1e-9 {
		t.Errorf("CompThresholdDb = %v, want %v", p.CompThresholdDb, wantThreshold)
	}

	// Noise at -60: open at noise+15, the louder of the two bounds.
	if p.GateOpenDb != -45.0 {
		t.Errorf("GateOpenDb = %v, want -45", p.GateOpenDb)
	}
	if p.GateCloseDb != -51.0 {
		t.Errorf("GateCloseDb = %v, want -51", p.GateCloseDb)
	}

	if p.NoiseFloorDb != -60.0 {
		t.Errorf("NoiseFloorDb = %v, want -60", p.NoiseFloorDb)
	}
	if p.SuppressDb != DefaultSuppressDb {
		t.Errorf("SuppressDb = %v, want default %v", p.SuppressDb, DefaultSuppressDb)
	}
	if p.LimiterDb != LimiterThresholdDb {
		t.Errorf("LimiterDb = %v, want %v", p.LimiterDb, LimiterThresholdDb)
	}
}

func TestDeriveAntiClip(t *testing.T) {
	proto := DefaultProtocol()
	steps := makeSteps(proto, -60, []float64{-30, -28, -26})

	// A hot peak at -4: the normalizing gain of ~9.85 would push it to
	// ~+5.85, so gain backs off until the peak lands on the ceiling.
	for _, step := range proto.ProgramSteps {
		steps[step-1].MaxPeakDb = -20
	}
	steps[proto.ProgramSteps[0]-1].MaxPeakDb = -4

	p, err := Derive(steps, proto, Options{Toggles: DefaultToggles()})
	if err != nil {
		t.Fatalf("Derive() error: %v", err)
	}
	if math.Abs(p.GainDb-1.0) > 1e-9 {
		t.Errorf("GainDb = %v, want 1.0 (peak pulled back to ceiling)", p.GainDb)
	}
	if p.LoudPeakDb != -4.0 {
		t.Errorf("LoudPeakDb = %v, want -4", p.LoudPeakDb)
	}
}

func TestDeriveGainClamp(t *testing.T) {
	proto := DefaultProtocol()

	// A whisper-level voice would want ~+42dB; gain stops at the limit.
	steps := makeSteps(proto, -90, []float64{-60, -60, -60})
	p, err := Derive(steps, proto, Options{Toggles: DefaultToggles()})
	if err != nil {
		t.Fatalf("Derive() error: %v", err)
	}
	if p.GainDb != 18.0 {
		t.Errorf("GainDb = %v, want clamp at 18", p.GainDb)
	}
}

func TestDeriveRatioBrackets(t *testing.T) {
	proto := DefaultProtocol()
	tests := []struct {
		name      string
		programDb []float64
		wantRatio float64
	}{
		{"wide range", []float64{-40, -32, -24}, 6.0},    // 16dB spread
		{"default range", []float64{-34, -29, -24}, 4.0}, // 10dB spread
		{"narrow range", []float64{-30, -28, -26}, 3.0},  // 4dB spread
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := makeSteps(proto, -60, tt.programDb)
			p, err := Derive(steps, proto, Options{Toggles: DefaultToggles()})
			if err != nil {
				t.Fatalf("Derive() error: %v", err)
			}
			if p.CompRatio != tt.wantRatio {
				t.Errorf("CompRatio = %v, want %v", p.CompRatio, tt.wantRatio)
			}
		})
	}
}

func TestDeriveGateBounds(t *testing.T) {
	proto := DefaultProtocol()

	// A loud room: noise+15 would sit above the open ceiling.
	steps := makeSteps(proto, -20, []float64{-18, -16, -14})
	p, err := Derive(steps, proto, Options{Toggles: DefaultToggles()})
	if err != nil {
		t.Fatalf("Derive() error: %v", err)
	}
	if p.GateOpenDb != -10.0 {
		t.Errorf("GateOpenDb = %v, want ceiling -10", p.GateOpenDb)
	}
	if p.GateCloseDb != -16.0 {
		t.Errorf("GateCloseDb = %v, want -16", p.GateCloseDb)
	}

	// A silent booth with a quiet voice: the speech guard keeps the gate
	// from opening far above where quiet speech lives.
	steps = makeSteps(proto, -95, []float64{-30, -28, -26})
	p, err = Derive(steps, proto, Options{Toggles: DefaultToggles()})
	if err != nil {
		t.Fatalf("Derive() error: %v", err)
	}
	wantOpen := p.AvgProgramDb - 25.0 // louder than noise+15 = -80
	if math.Abs(p.GateOpenDb-wantOpen) > 1e-9 {
		t.Errorf("GateOpenDb = %v, want %v", p.GateOpenDb, wantOpen)
	}
}

func TestDeriveIncomplete(t *testing.T) {
	proto := DefaultProtocol()
	steps := makeSteps(proto, -60, []float64{-30, -28, -26})
	steps[4].Recorded = false // program step 5

	_, err := Derive(steps, proto, Options{})
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("Derive() error = %v, want ErrIncomplete", err)
	}

	// Non-required steps may be missing.
	steps = makeSteps(proto, -60, []float64{-30, -28, -26})
	steps[1].Recorded = false // whisper step is not required
	if _, err := Derive(steps, proto, Options{Toggles: DefaultToggles()}); err != nil {
		t.Errorf("Derive() with optional step missing: %v", err)
	}
}

func TestDeriveDeterministic(t *testing.T) {
	proto := DefaultProtocol()
	steps := makeSteps(proto, -58.3, []float64{-31.7, -27.2, -25.9})
	opts := Options{Toggles: DefaultToggles(), SuppressDb: -15}

	first, err := Derive(steps, proto, opts)
	if err != nil {
		t.Fatalf("Derive() error: %v", err)
	}
	second, err := Derive(steps, proto, opts)
	if err != nil {
		t.Fatalf("Derive() error: %v", err)
	}
	if first != second {
		t.Errorf("identical inputs produced different bundles:\n%+v\n%+v", first, second)
	}
	if first.SuppressDb != -15 {
		t.Errorf("SuppressDb = %v, want explicit -15", first.SuppressDb)
	}
}

func TestDeriveStepCountMismatch(t *testing.T) {
	proto := DefaultProtocol()
	if _, err := Derive(make([]StepResult, 3), proto, Options{}); err == nil {
		t.Fatal("Derive() with wrong step count succeeded")
	}
}
