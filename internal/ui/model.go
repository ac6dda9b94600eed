// Package ui provides the Bubbletea terminal wizard that walks the user
// through the calibration protocol and applies the resulting filters.
package ui

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/linuxmatters/soundcheck/internal/analyzer"
	"github.com/linuxmatters/soundcheck/internal/calibration"
	"github.com/linuxmatters/soundcheck/internal/filters"
)

var debugLog *os.File

func init() {
	if os.Getenv("SOUNDCHECK_DEBUG") != "" {
		debugLog, _ = os.OpenFile("soundcheck-ui-debug.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	}
}

func log(format string, args ...interface{}) {
	if debugLog != nil {
		fmt.Fprintf(debugLog, format+"\n", args...)
	}
}

// Phase is the wizard's current screen.
type Phase int

const (
	PhaseSelectInput Phase = iota
	PhasePrompt            // showing the step instruction, waiting for Enter
	PhaseRecording         // timed window open, ticking
	PhaseStepDone          // step results shown, waiting to advance
	PhaseResults           // all steps done, derived parameters preview
	PhaseApplying          // filter chain being installed
	PhaseDone
	PhaseError
)

// Hooks are the external operations the wizard drives. They run inside
// tea.Cmd goroutines, so each must be safe to call off the UI loop.
type Hooks struct {
	ListInputs func() ([]string, error)
	Apply      func(input string, p calibration.Params) (filters.Result, error)
}

// Model is the Bubbletea model for the calibration wizard.
type Model struct {
	Analyzer *analyzer.Analyzer
	Session  *calibration.Session
	Options  calibration.Options
	Hooks    Hooks

	Phase Phase

	// Input selection
	Inputs   []string
	Cursor   int
	Input    string // chosen microphone input
	SkipOBS  bool   // no host connection, measure-only run
	LoadErr  error
	Progress calibration.Progress

	// Live meter readings, refreshed every tick
	RMSDb  float64
	PeakDb float64

	// Outcome
	Params      calibration.Params
	ApplyResult filters.Result
	Err         error

	Width  int
	Height int
}

// NewModel builds the wizard over a running analyzer and its session.
// When hooks.ListInputs is nil the wizard skips input selection and runs
// measure-only.
func NewModel(an *analyzer.Analyzer, session *calibration.Session, opts calibration.Options, hooks Hooks) Model {
	m := Model{
		Analyzer: an,
		Session:  session,
		Options:  opts,
		Hooks:    hooks,
		Phase:    PhaseSelectInput,
		RMSDb:    analyzer.FloorDB,
		PeakDb:   analyzer.FloorDB,
	}
	if hooks.ListInputs == nil {
		m.SkipOBS = true
	}
	return m
}

// sessionStartMsg kicks off the session on the UI loop when the wizard
// runs without a host connection.
type sessionStartMsg struct{}

// Init starts input discovery and the meter tick.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.Session.Protocol().TickInterval)}
	if m.SkipOBS {
		cmds = append(cmds, func() tea.Msg { return sessionStartMsg{} })
	} else {
		cmds = append(cmds, loadInputsCmd(m.Hooks.ListInputs))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and advances the wizard.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		log("[DEBUG] Window size: %dx%d", msg.Width, msg.Height)
		m.Width = msg.Width
		m.Height = msg.Height

	case sessionStartMsg:
		return m.startSession(), nil

	case InputsLoadedMsg:
		log("[DEBUG] InputsLoadedMsg: %d inputs, err=%v", len(msg.Inputs), msg.Err)
		if msg.Err != nil {
			m.LoadErr = msg.Err
			m.SkipOBS = true
			return m.startSession(), nil
		}
		m.Inputs = msg.Inputs
		if len(m.Inputs) == 0 {
			m.SkipOBS = true
			return m.startSession(), nil
		}

	case TickMsg:
		return m.handleTick()

	case ApplyDoneMsg:
		log("[DEBUG] ApplyDoneMsg: applied=%d failed=%d err=%v", msg.Result.Applied, msg.Result.Failed, msg.Err)
		if msg.Err != nil {
			m.Err = msg.Err
			m.Phase = PhaseError
			return m, nil
		}
		m.ApplyResult = msg.Result
		m.Phase = PhaseDone

	case CaptureErrorMsg:
		m.Err = msg.Err
		m.Phase = PhaseError
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	switch m.Phase {
	case PhaseSelectInput:
		switch msg.String() {
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Inputs)-1 {
				m.Cursor++
			}
		case "enter":
			if len(m.Inputs) > 0 {
				m.Input = m.Inputs[m.Cursor]
				return m.startSession(), nil
			}
		case "s":
			m.SkipOBS = true
			return m.startSession(), nil
		}

	case PhasePrompt:
		if msg.String() == "enter" {
			if err := m.Session.BeginStepRecording(); err != nil {
				m.Err = err
				m.Phase = PhaseError
				return m, nil
			}
			m.Phase = PhaseRecording
		}

	case PhaseStepDone:
		switch msg.String() {
		case "enter":
			if err := m.Session.Advance(); err != nil {
				m.Err = err
				m.Phase = PhaseError
				return m, nil
			}
			if m.Session.Complete() {
				return m.finishSession(), nil
			}
			m.Phase = PhasePrompt
		case "r":
			// Redo the current step: reopen its window.
			if err := m.Session.BeginStepRecording(); err != nil {
				m.Err = err
				m.Phase = PhaseError
				return m, nil
			}
			m.Phase = PhaseRecording
		}

	case PhaseResults:
		switch msg.String() {
		case "enter":
			if m.SkipOBS || m.Hooks.Apply == nil {
				m.Phase = PhaseDone
				return m, nil
			}
			m.Phase = PhaseApplying
			return m, applyCmd(m.Hooks.Apply, m.Input, m.Params)
		case "s":
			m.Phase = PhaseDone
		}

	case PhaseDone, PhaseError:
		if msg.String() == "enter" {
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	m.RMSDb, m.PeakDb = m.Analyzer.CurrentLevels()

	if m.Phase == PhaseRecording {
		progress, err := m.Session.Tick()
		if err != nil {
			m.Err = err
			m.Phase = PhaseError
			return m, nil
		}
		m.Progress = progress
		if progress.Done {
			log("[DEBUG] Step %d window closed", progress.Step)
			m.Phase = PhaseStepDone
		}
	}

	return m, tickCmd(m.Session.Protocol().TickInterval)
}

// startSession moves the wizard to the first prompt. A session restored
// from a snapshot resumes at its saved step instead of starting over.
func (m Model) startSession() Model {
	if m.Session.CurrentStep() == 0 {
		if err := m.Session.Start(); err != nil {
			m.Err = err
			m.Phase = PhaseError
			return m
		}
	}
	if m.Session.Complete() {
		return m.finishSession()
	}
	m.Phase = PhasePrompt
	return m
}

// finishSession derives the parameter bundle once the last step closes.
func (m Model) finishSession() Model {
	params, err := m.Session.Derive(m.Options)
	if err != nil {
		m.Err = err
		m.Phase = PhaseError
		return m
	}
	m.Params = params
	m.Phase = PhaseResults
	return m
}

// View renders the wizard.
func (m Model) View() string {
	switch m.Phase {
	case PhaseSelectInput:
		return renderSelectInput(m)
	case PhasePrompt:
		return renderPrompt(m)
	case PhaseRecording:
		return renderRecording(m)
	case PhaseStepDone:
		return renderStepDone(m)
	case PhaseResults:
		return renderResults(m)
	case PhaseApplying:
		return renderApplying(m)
	case PhaseDone:
		return renderDone(m)
	case PhaseError:
		return renderError(m)
	}
	return ""
}

// tickCmd schedules the next meter/countdown tick.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// loadInputsCmd fetches the host's microphone inputs off the UI loop.
func loadInputsCmd(list func() ([]string, error)) tea.Cmd {
	return func() tea.Msg {
		inputs, err := list()
		return InputsLoadedMsg{Inputs: inputs, Err: err}
	}
}

// applyCmd installs the filter chain off the UI loop.
func applyCmd(apply func(string, calibration.Params) (filters.Result, error), input string, p calibration.Params) tea.Cmd {
	return func() tea.Msg {
		result, err := apply(input, p)
		return ApplyDoneMsg{Result: result, Err: err}
	}
}
