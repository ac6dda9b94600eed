package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/linuxmatters/soundcheck/internal/calibration"
)

// Data carries everything the summary needs.
type Data struct {
	Input     string // microphone input the filters were applied to
	Timestamp time.Time

	StepLabels []string // one per protocol step, for the table
	Steps      []calibration.StepResult
	Aggregate  calibration.Aggregate
	Params     calibration.Params

	Applied int // filters created on the input
	Failed  int
}

// Write renders the full calibration report.
func Write(w io.Writer, data Data) {
	fmt.Fprintln(w, "Soundcheck Calibration Report")
	fmt.Fprintln(w, "=============================")
	if data.Input != "" {
		fmt.Fprintf(w, "Input: %s\n", data.Input)
	}
	fmt.Fprintf(w, "Calibrated: %s\n", data.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintln(w)

	writeSection(w, "Step Measurements")
	fmt.Fprint(w, stepTable(data.StepLabels, data.Steps).String())
	fmt.Fprintln(w)

	writeSection(w, "Voice Profile")
	writeProfile(w, data.Aggregate, data.Params)
	fmt.Fprintln(w)

	writeSection(w, "Derived Filter Parameters")
	writeParams(w, data.Params)
	fmt.Fprintln(w)

	if data.Applied > 0 || data.Failed > 0 {
		writeSection(w, "Filters Applied")
		fmt.Fprintf(w, "Created: %d\n", data.Applied)
		if data.Failed > 0 {
			fmt.Fprintf(w, "Failed:  %d\n", data.Failed)
		}
		fmt.Fprintln(w)
	}

	tips := Tips(data.Aggregate, data.Params)
	if len(tips) > 0 {
		writeSection(w, "Recording Tips")
		for _, tip := range tips {
			fmt.Fprintf(w, "- %s\n", tip.Message)
		}
		fmt.Fprintln(w)
	}
}

// writeSection writes a title with a dashed underline matching its length.
func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

func stepTable(labels []string, steps []calibration.StepResult) *Table {
	table := &Table{Headers: []string{"Avg RMS", "Max Peak"}}
	for i, step := range steps {
		label := fmt.Sprintf("Step %d", i+1)
		if i < len(labels) && labels[i] != "" {
			label = fmt.Sprintf("Step %d: %s", i+1, labels[i])
		}
		avg, peak := MissingValue, MissingValue
		if step.Recorded {
			avg = formatDB(step.AverageRMSDb, 1)
			peak = formatDB(step.MaxPeakDb, 1)
		}
		table.AddRow(label, []string{avg, peak}, "dBFS")
	}
	return table
}

func writeProfile(w io.Writer, agg calibration.Aggregate, p calibration.Params) {
	fmt.Fprintf(w, "Average program level: %s dBFS\n", formatDB(p.AvgProgramDb, 1))
	fmt.Fprintf(w, "Loudest program peak:  %s dBFS\n", formatDB(p.LoudPeakDb, 1))
	fmt.Fprintf(w, "Program dynamic range: %.1f dB\n", p.DynamicRangeDb)
	fmt.Fprintf(w, "Noise floor:           %s dBFS\n", formatDB(p.NoiseFloorDb, 1))
	fmt.Fprintf(w, "Session range:         %s to %s dBFS (%d steps recorded)\n",
		formatDB(agg.MinDb, 1), formatDB(agg.MaxDb, 1), agg.Recorded)
}

func writeParams(w io.Writer, p calibration.Params) {
	table := &Table{Headers: []string{"Value"}}
	stage := func(enabled bool) string {
		if enabled {
			return ""
		}
		return " (off)"
	}
	table.AddRow("Gain"+stage(p.Stages.Gain), []string{formatSigned(p.GainDb, 1)}, "dB")
	table.AddRow("Compressor threshold"+stage(p.Stages.Compressor), []string{formatDB(p.CompThresholdDb, 1)}, "dBFS")
	table.AddRow("Compressor ratio"+stage(p.Stages.Compressor), []string{fmt.Sprintf("%.0f:1", p.CompRatio)}, "")
	table.AddRow("Gate open"+stage(p.Stages.NoiseGate), []string{formatDB(p.GateOpenDb, 1)}, "dBFS")
	table.AddRow("Gate close"+stage(p.Stages.NoiseGate), []string{formatDB(p.GateCloseDb, 1)}, "dBFS")
	table.AddRow("Noise suppression"+stage(p.Stages.NoiseSuppression), []string{formatDB(p.SuppressDb, 0)}, "dB")
	table.AddRow("Limiter"+stage(p.Stages.Limiter), []string{formatDB(p.LimiterDb, 1)}, "dBFS")
	fmt.Fprint(w, table.String())
}
