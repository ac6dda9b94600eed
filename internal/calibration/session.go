// Package calibration drives the multi-step voice calibration protocol:
// timed recording windows per step, linear-domain level aggregation, and
// derivation of filter parameters from the collected measurements.
package calibration

import (
	"errors"
	"fmt"
	"time"

	"github.com/linuxmatters/soundcheck/internal/analyzer"
)

// SentinelDB marks a step slot that has not been recorded yet.
const SentinelDB = analyzer.FloorDB

// Session state errors. All are synchronous precondition failures: the
// session state is unchanged when one is returned.
var (
	ErrNotCapturing     = errors.New("calibration: analyzer is not capturing")
	ErrNotStarted       = errors.New("calibration: session not started")
	ErrSessionComplete  = errors.New("calibration: session already complete")
	ErrAlreadyRecording = errors.New("calibration: step recording already in progress")
	ErrWindowOpen       = errors.New("calibration: recording window still open")
	ErrStepNotRecorded  = errors.New("calibration: current step not recorded")
)

// Protocol describes the shape of a calibration run. Step indices are
// 1-based throughout to match how the wizard presents them.
type Protocol struct {
	Steps        int           // number of recording steps
	ProgramSteps []int         // steps recorded at normal speaking voice
	NoiseStep    int           // step recorded in silence (room noise floor)
	TickInterval time.Duration // sampling cadence inside a recording window
	Window       time.Duration // duration of each recording window
}

// DefaultProtocol is the 8-step wizard: silence, whisper, quiet, then three
// program-voice samples, then projected and loud speech.
func DefaultProtocol() Protocol {
	return Protocol{
		Steps:        8,
		ProgramSteps: []int{4, 5, 6},
		NoiseStep:    1,
		TickInterval: 100 * time.Millisecond,
		Window:       5 * time.Second,
	}
}

// Validate checks that the protocol indices are coherent.
func (p Protocol) Validate() error {
	if p.Steps < 1 {
		return fmt.Errorf("calibration: protocol needs at least one step, got %d", p.Steps)
	}
	if p.NoiseStep < 1 || p.NoiseStep > p.Steps {
		return fmt.Errorf("calibration: noise step %d out of range 1..%d", p.NoiseStep, p.Steps)
	}
	if len(p.ProgramSteps) == 0 {
		return errors.New("calibration: protocol needs at least one program step")
	}
	for _, step := range p.ProgramSteps {
		if step < 1 || step > p.Steps {
			return fmt.Errorf("calibration: program step %d out of range 1..%d", step, p.Steps)
		}
	}
	if p.TickInterval <= 0 || p.Window <= 0 {
		return errors.New("calibration: tick interval and window must be positive")
	}
	return nil
}

// StepResult is the finalized measurement for one calibration step.
// AverageRMSDb and MaxPeakDb hold SentinelDB until the step's window has
// produced at least one tick; Recorded flips once the window closes.
type StepResult struct {
	AverageRMSDb float64
	MaxPeakDb    float64
	Recorded     bool
}

// Progress reports the state of the active recording window after a tick.
type Progress struct {
	Step        int
	ElapsedMs   int64
	RemainingMs int64
	Done        bool
}

// Aggregate summarises the recorded steps for display.
type Aggregate struct {
	MinDb          float64
	MaxDb          float64
	AverageDb      float64 // linear-domain mean of step averages
	DynamicRangeDb float64 // loudest minus quietest step average
	Recorded       int
}

// Session is the calibration state machine. It runs entirely on the
// driving goroutine; only the analyzer it samples is shared with the
// capture side.
type Session struct {
	proto    Protocol
	analyzer *analyzer.Analyzer

	steps   []StepResult
	current int // 0 = idle, 1..Steps = on that step, Steps+1 = complete

	recording bool
	elapsed   time.Duration

	// Per-window accumulator. RMS readings are folded in linear amplitude
	// space: averaging dB values directly would skew quiet ticks, since
	// the mean of logs is not the log of the mean.
	sumLinear float64
	tickCount int
	peakDb    float64
}

// NewSession creates an idle session over the given analyzer.
func NewSession(proto Protocol, an *analyzer.Analyzer) (*Session, error) {
	if err := proto.Validate(); err != nil {
		return nil, err
	}
	if an == nil {
		return nil, errors.New("calibration: nil analyzer")
	}
	s := &Session{proto: proto, analyzer: an}
	s.clearSteps()
	return s, nil
}

// Start moves the session from idle to the first step. Requires an active
// analyzer. All step slots reset to the sentinel.
func (s *Session) Start() error {
	if !s.analyzer.Capturing() {
		return ErrNotCapturing
	}
	s.clearSteps()
	s.current = 1
	s.recording = false
	return nil
}

// BeginStepRecording opens the timed recording window for the current
// step: the per-window accumulator and the analyzer's max-peak tracker are
// reset, then Tick folds in readings until the window closes.
func (s *Session) BeginStepRecording() error {
	switch {
	case s.current == 0:
		return ErrNotStarted
	case s.Complete():
		return ErrSessionComplete
	case s.recording:
		return ErrAlreadyRecording
	case !s.analyzer.Capturing():
		return ErrNotCapturing
	}

	s.recording = true
	s.elapsed = 0
	s.sumLinear = 0
	s.tickCount = 0
	s.peakDb = SentinelDB
	s.analyzer.ResetMaxPeak()

	return nil
}

// Tick samples the analyzer and folds the reading into the current step.
// The step's stored average and peak are updated on every tick, so the
// wizard can display them while the window is still open. When the
// accumulated time reaches the window duration the step is marked
// recorded and Progress.Done is set.
func (s *Session) Tick() (Progress, error) {
	if !s.recording {
		return Progress{}, ErrNotStarted
	}

	s.elapsed += s.proto.TickInterval

	rmsDb, peakDb := s.analyzer.CurrentLevels()
	s.sumLinear += analyzer.FromDB(rmsDb)
	s.tickCount++
	if peakDb > s.peakDb {
		s.peakDb = peakDb
	}

	step := &s.steps[s.current-1]
	step.AverageRMSDb = analyzer.ToDB(s.sumLinear / float64(s.tickCount))
	step.MaxPeakDb = s.peakDb

	progress := Progress{
		Step:        s.current,
		ElapsedMs:   s.elapsed.Milliseconds(),
		RemainingMs: max(0, (s.proto.Window - s.elapsed).Milliseconds()),
	}

	if s.elapsed >= s.proto.Window {
		step.Recorded = true
		s.recording = false
		progress.Done = true
	}

	return progress, nil
}

// Advance moves to the next step once the current step's window has
// closed, or to the complete state after the last step.
func (s *Session) Advance() error {
	switch {
	case s.current == 0:
		return ErrNotStarted
	case s.Complete():
		return ErrSessionComplete
	case s.recording:
		return ErrWindowOpen
	case !s.steps[s.current-1].Recorded:
		return ErrStepNotRecorded
	}
	s.current++
	return nil
}

// Reset returns the session to idle and clears all step data.
func (s *Session) Reset() {
	s.current = 0
	s.recording = false
	s.elapsed = 0
	s.clearSteps()
}

// CurrentStep returns 0 when idle, the 1-based active step while running,
// or Steps+1 once complete.
func (s *Session) CurrentStep() int { return s.current }

// Recording reports whether a step window is currently open.
func (s *Session) Recording() bool { return s.recording }

// Complete reports whether every step has been recorded and the session
// has advanced past the last one.
func (s *Session) Complete() bool { return s.current > s.proto.Steps }

// Protocol returns the protocol this session runs.
func (s *Session) Protocol() Protocol { return s.proto }

// Steps returns a copy of the step results.
func (s *Session) Steps() []StepResult {
	out := make([]StepResult, len(s.steps))
	copy(out, s.steps)
	return out
}

// Aggregate summarises the recorded steps. Zero value when nothing has
// been recorded yet.
func (s *Session) Aggregate() Aggregate {
	agg := Aggregate{MinDb: 0, MaxDb: SentinelDB}
	var sumLinear float64
	first := true
	for _, step := range s.steps {
		if !step.Recorded {
			continue
		}
		if first || step.AverageRMSDb < agg.MinDb {
			agg.MinDb = step.AverageRMSDb
		}
		if step.AverageRMSDb > agg.MaxDb {
			agg.MaxDb = step.AverageRMSDb
		}
		sumLinear += analyzer.FromDB(step.AverageRMSDb)
		agg.Recorded++
		first = false
	}
	if agg.Recorded == 0 {
		return Aggregate{MinDb: SentinelDB, MaxDb: SentinelDB, AverageDb: SentinelDB}
	}
	agg.AverageDb = analyzer.ToDB(sumLinear / float64(agg.Recorded))
	agg.DynamicRangeDb = agg.MaxDb - agg.MinDb
	return agg
}

func (s *Session) clearSteps() {
	s.steps = make([]StepResult, s.proto.Steps)
	for i := range s.steps {
		s.steps[i] = StepResult{AverageRMSDb: SentinelDB, MaxPeakDb: SentinelDB}
	}
}
