package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/linuxmatters/soundcheck/internal/analyzer"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1E66F5"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#1E66F5")).
			Padding(0, 1).
			Width(64)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	errStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A40000"))
)

func renderHeader(m Model) string {
	title := titleStyle.Render("Soundcheck 🎚 - Microphone Calibration")
	sub := fmt.Sprintf("%d-step guided calibration", m.Session.Protocol().Steps)
	if m.Input != "" {
		sub += " for " + m.Input
	}
	return title + "\n" + subtitleStyle.Render(sub)
}

func renderSelectInput(m Model) string {
	var b strings.Builder
	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	if len(m.Inputs) == 0 {
		b.WriteString("Connecting to the streaming host...\n")
		b.WriteString(footerStyle.Render("\ns skip and measure only • q quit\n"))
		return b.String()
	}

	b.WriteString("Which microphone input should be calibrated?\n\n")
	for i, input := range m.Inputs {
		cursor := "  "
		line := input
		if i == m.Cursor {
			cursor = "> "
			line = titleStyle.Render(input)
		}
		b.WriteString(fmt.Sprintf(" %s%s\n", cursor, line))
	}

	b.WriteString(footerStyle.Render("\n↑/↓ select • enter confirm • s measure only • q quit\n"))
	return b.String()
}

func renderPrompt(m Model) string {
	step := m.Session.CurrentStep()

	var content strings.Builder
	content.WriteString(fmt.Sprintf("Step %d/%d: %s\n\n", step, m.Session.Protocol().Steps, StepLabel(step)))
	content.WriteString(StepInstruction(step))
	content.WriteString(fmt.Sprintf("\n\nRecording lasts %.0f seconds.", m.Session.Protocol().Window.Seconds()))

	var b strings.Builder
	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	b.WriteString(boxStyle.Render(content.String()))
	b.WriteString("\n")
	b.WriteString(renderMeters(m))
	b.WriteString(footerStyle.Render("\nenter start recording • q quit\n"))
	return b.String()
}

func renderRecording(m Model) string {
	step := m.Session.CurrentStep()
	window := m.Session.Protocol().Window.Milliseconds()

	var progress float64
	if window > 0 {
		progress = float64(m.Progress.ElapsedMs) / float64(window)
		if progress > 1 {
			progress = 1
		}
	}

	var content strings.Builder
	content.WriteString(fmt.Sprintf("Step %d/%d: %s (recording)\n\n", step, m.Session.Protocol().Steps, StepLabel(step)))
	content.WriteString(renderBar(progress, 40))
	content.WriteString(fmt.Sprintf("\n\n⏱  %.1fs remaining", float64(m.Progress.RemainingMs)/1000))

	var b strings.Builder
	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	b.WriteString(boxStyle.Render(content.String()))
	b.WriteString("\n")
	b.WriteString(renderMeters(m))
	b.WriteString(footerStyle.Render("\nq quit\n"))
	return b.String()
}

func renderStepDone(m Model) string {
	step := m.Session.CurrentStep()
	results := m.Session.Steps()
	r := results[step-1]

	var content strings.Builder
	content.WriteString(fmt.Sprintf("Step %d/%d: %s %s\n\n", step, m.Session.Protocol().Steps,
		StepLabel(step), okStyle.Render("✓")))
	content.WriteString(fmt.Sprintf("Average level: %.1f dBFS\n", r.AverageRMSDb))
	content.WriteString(fmt.Sprintf("Peak level:    %.1f dBFS", r.MaxPeakDb))

	var b strings.Builder
	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	b.WriteString(boxStyle.Render(content.String()))
	b.WriteString("\n")
	b.WriteString(renderMeters(m))
	b.WriteString(footerStyle.Render("\nenter next step • r redo • q quit\n"))
	return b.String()
}

func renderResults(m Model) string {
	p := m.Params

	var content strings.Builder
	content.WriteString("Your voice profile:\n")
	content.WriteString(fmt.Sprintf("  Average level: %.1f dBFS   Loudest peak: %.1f dBFS\n", p.AvgProgramDb, p.LoudPeakDb))
	content.WriteString(fmt.Sprintf("  Dynamic range: %.1f dB     Noise floor:  %.1f dBFS\n\n", p.DynamicRangeDb, p.NoiseFloorDb))
	content.WriteString("Derived filters:\n")
	content.WriteString(fmt.Sprintf("  Gain %+.1f dB • Compressor %.0f:1 at %.1f dBFS\n", p.GainDb, p.CompRatio, p.CompThresholdDb))
	content.WriteString(fmt.Sprintf("  Gate %.1f/%.1f dBFS • Suppression %.0f dB • Limiter %.1f dBFS", p.GateOpenDb, p.GateCloseDb, p.SuppressDb, p.LimiterDb))

	var b strings.Builder
	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	b.WriteString(okStyle.Render("✨ Calibration complete!"))
	b.WriteString("\n\n")
	b.WriteString(boxStyle.Render(content.String()))
	if m.SkipOBS {
		b.WriteString(footerStyle.Render("\nenter finish • q quit\n"))
	} else {
		b.WriteString(footerStyle.Render("\nenter apply filters • s skip applying • q quit\n"))
	}
	return b.String()
}

func renderApplying(m Model) string {
	var b strings.Builder
	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Installing the filter chain on %s...\n", m.Input))
	return b.String()
}

func renderDone(m Model) string {
	var b strings.Builder
	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	b.WriteString(okStyle.Render("✨ All done!"))
	b.WriteString("\n\n")

	if m.ApplyResult.Applied > 0 {
		b.WriteString(fmt.Sprintf("Installed %d filter(s) on %s.\n", m.ApplyResult.Applied, m.Input))
	}
	if m.ApplyResult.Failed > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("%d filter(s) could not be installed:\n", m.ApplyResult.Failed)))
		for _, err := range m.ApplyResult.Errors {
			b.WriteString(fmt.Sprintf("  - %v\n", err))
		}
	}
	if m.ApplyResult.Applied == 0 && m.ApplyResult.Failed == 0 {
		b.WriteString("No filters were applied. The measurements are in the report.\n")
	}

	b.WriteString(footerStyle.Render("\nenter exit\n"))
	return b.String()
}

func renderError(m Model) string {
	var b strings.Builder
	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	b.WriteString(errStyle.Render("Error: "))
	b.WriteString(fmt.Sprintf("%v\n", m.Err))
	b.WriteString(footerStyle.Render("\nenter exit • q quit\n"))
	return b.String()
}

// renderMeters draws the live RMS and peak bars under the active box.
func renderMeters(m Model) string {
	rmsPct := analyzer.MeterPercent(m.RMSDb)
	peakPct := analyzer.MeterPercent(m.PeakDb)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("\n RMS  %s %5.1f dB\n", renderBar(float64(rmsPct)/100, 40), m.RMSDb))
	b.WriteString(fmt.Sprintf(" Peak %s %5.1f dB\n", renderBar(float64(peakPct)/100, 40), m.PeakDb))
	return b.String()
}

// renderBar renders a fixed-width fill bar.
func renderBar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
