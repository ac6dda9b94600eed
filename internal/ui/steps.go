package ui

// stepScript is the guided wizard script for the default 8-step protocol.
// Each entry pairs a short label with the on-screen instruction shown
// before the step's recording window opens.
var stepScript = []struct {
	Label       string
	Instruction string
}{
	{"Room noise", "Stay completely silent so we can measure your room's noise floor."},
	{"Whisper", "Whisper something, as quietly as you would ever speak on stream."},
	{"Quiet voice", "Speak softly, like you're telling a late-night story."},
	{"Normal voice", "Speak in your normal streaming voice. Just talk naturally."},
	{"Normal voice", "Keep talking in your normal voice. Reading something aloud works well."},
	{"Normal voice", "One more pass at your normal voice so we get a solid average."},
	{"Projected voice", "Project your voice, like you're hyping up a big moment."},
	{"Loud voice", "Get loud! Shout or laugh as hard as you ever would on stream."},
}

// StepLabel returns the display label for a 1-based step number. Steps
// beyond the scripted eight fall back to a generic label.
func StepLabel(step int) string {
	if step >= 1 && step <= len(stepScript) {
		return stepScript[step-1].Label
	}
	return "Custom step"
}

// StepInstruction returns the instruction text for a 1-based step number.
func StepInstruction(step int) string {
	if step >= 1 && step <= len(stepScript) {
		return stepScript[step-1].Instruction
	}
	return "Speak as directed for this step."
}

// StepLabels returns labels for the first n steps, for the report table.
func StepLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = StepLabel(i + 1)
	}
	return labels
}
