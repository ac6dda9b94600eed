package ui

import (
	"time"

	"github.com/linuxmatters/soundcheck/internal/filters"
)

// TickMsg drives the recording countdown and the live level meters.
type TickMsg time.Time

// InputsLoadedMsg delivers the streaming host's microphone input list.
type InputsLoadedMsg struct {
	Inputs []string
	Err    error
}

// ApplyDoneMsg delivers the result of installing the filter chain.
type ApplyDoneMsg struct {
	Result filters.Result
	Err    error
}

// CaptureErrorMsg reports that the audio capture pipeline failed.
type CaptureErrorMsg struct {
	Err error
}
