package calibration

import (
	"encoding/json"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	s, src := newTestSession(t)
	src.feedLevel(0.2)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	recordStep(t, s)
	if err := s.Advance(); err != nil {
		t.Fatalf("Advance() error: %v", err)
	}

	snap := s.Snapshot()
	if snap.Step != 2 {
		t.Errorf("Snapshot().Step = %d, want 2", snap.Step)
	}

	// Through JSON and back, as the CLI persists it.
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	restored, src2 := newTestSession(t)
	src2.feedLevel(0.2)
	if err := restored.Restore(decoded); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}

	if restored.CurrentStep() != 2 {
		t.Errorf("CurrentStep() after restore = %d, want 2", restored.CurrentStep())
	}
	steps := restored.Steps()
	if !steps[0].Recorded {
		t.Error("recorded step lost its recorded flag through restore")
	}
	if steps[1].Recorded || steps[2].Recorded {
		t.Error("unrecorded steps gained a recorded flag through restore")
	}
	if steps[0].AverageRMSDb != s.Steps()[0].AverageRMSDb {
		t.Errorf("restored level %v, want %v", steps[0].AverageRMSDb, s.Steps()[0].AverageRMSDb)
	}
}

func TestSnapshotDiscardsOpenWindow(t *testing.T) {
	s, src := newTestSession(t)
	src.feedLevel(0.2)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := s.BeginStepRecording(); err != nil {
		t.Fatalf("BeginStepRecording() error: %v", err)
	}

	if err := s.Restore(s.Snapshot()); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if s.Recording() {
		t.Error("recording window survived a restore")
	}
}

func TestRestoreValidation(t *testing.T) {
	s, _ := newTestSession(t)
	steps := s.Protocol().Steps

	tests := []struct {
		name string
		snap Snapshot
	}{
		{"wrong level arity", Snapshot{Levels: make([]float64, steps+1), Peaks: make([]float64, steps)}},
		{"wrong peak arity", Snapshot{Levels: make([]float64, steps), Peaks: make([]float64, steps-1)}},
		{"negative step", Snapshot{Levels: make([]float64, steps), Peaks: make([]float64, steps), Step: -1}},
		{"step past complete", Snapshot{Levels: make([]float64, steps), Peaks: make([]float64, steps), Step: steps + 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Restore(tt.snap); err == nil {
				t.Error("Restore() accepted an invalid snapshot")
			}
		})
	}
}
