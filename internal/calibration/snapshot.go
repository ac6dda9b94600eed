package calibration

import "fmt"

// Snapshot is the resumable session state an external store may persist
// verbatim: per-step level/peak arrays plus the step cursor. Unrecorded
// slots carry the sentinel; recordedness is recovered from it on restore.
type Snapshot struct {
	Levels []float64 `json:"levels"`
	Peaks  []float64 `json:"peaks"`
	Step   int       `json:"step"`
}

// recordedAboveDB: restored levels above this are treated as recorded.
// Unrecorded slots hold the -100dB sentinel, so anything above -99dB is
// a real measurement.
const recordedAboveDB = -99.0

// Snapshot captures the current session state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Levels: make([]float64, len(s.steps)),
		Peaks:  make([]float64, len(s.steps)),
		Step:   s.current,
	}
	for i, step := range s.steps {
		snap.Levels[i] = step.AverageRMSDb
		snap.Peaks[i] = step.MaxPeakDb
	}
	return snap
}

// Restore replaces the session state with a previously captured snapshot.
// Any open recording window is discarded. The snapshot must match the
// session's protocol arity.
func (s *Session) Restore(snap Snapshot) error {
	if len(snap.Levels) != s.proto.Steps || len(snap.Peaks) != s.proto.Steps {
		return fmt.Errorf("calibration: snapshot has %d/%d slots, protocol wants %d",
			len(snap.Levels), len(snap.Peaks), s.proto.Steps)
	}
	if snap.Step < 0 || snap.Step > s.proto.Steps+1 {
		return fmt.Errorf("calibration: snapshot step %d out of range", snap.Step)
	}

	s.clearSteps()
	for i := range s.steps {
		s.steps[i] = StepResult{
			AverageRMSDb: snap.Levels[i],
			MaxPeakDb:    snap.Peaks[i],
			Recorded:     snap.Levels[i] > recordedAboveDB,
		}
	}
	s.current = snap.Step
	s.recording = false
	s.elapsed = 0

	return nil
}
