// Package report renders the calibration summary: per-step measurements,
// aggregates, the derived filter parameters, and recording advice.
package report

import (
	"fmt"
	"math"
	"strings"
)

// MissingValue is the placeholder for unrecorded measurements.
const MissingValue = "-"

// Row is one line of a measurement table. Values are pre-formatted so a
// row can mix dB figures with ratios and plain text.
type Row struct {
	Label  string
	Values []string
	Unit   string
}

// Table formats aligned measurement columns. Labels are left-aligned,
// values right-aligned within their column.
type Table struct {
	Headers []string
	Rows    []Row
}

// AddRow appends a row with pre-formatted values.
func (t *Table) AddRow(label string, values []string, unit string) {
	t.Rows = append(t.Rows, Row{Label: label, Values: values, Unit: unit})
}

// String renders the table.
func (t *Table) String() string {
	if len(t.Rows) == 0 {
		return ""
	}

	labelWidth := 0
	for _, row := range t.Rows {
		if len(row.Label) > labelWidth {
			labelWidth = len(row.Label)
		}
	}

	valueWidths := make([]int, len(t.Headers))
	for i, header := range t.Headers {
		valueWidths[i] = len(header)
	}
	for _, row := range t.Rows {
		for i, val := range row.Values {
			if i < len(valueWidths) && len(val) > valueWidths[i] {
				valueWidths[i] = len(val)
			}
		}
	}

	var sb strings.Builder

	sb.WriteString(strings.Repeat(" ", labelWidth+2))
	for i, header := range t.Headers {
		sb.WriteString(fmt.Sprintf("%*s  ", valueWidths[i], header))
	}
	sb.WriteString("\n")

	for _, row := range t.Rows {
		sb.WriteString(fmt.Sprintf("%-*s  ", labelWidth, row.Label))
		for i := range t.Headers {
			val := MissingValue
			if i < len(row.Values) && row.Values[i] != "" {
				val = row.Values[i]
			}
			sb.WriteString(fmt.Sprintf("%*s  ", valueWidths[i], val))
		}
		if row.Unit != "" {
			sb.WriteString(row.Unit)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatDB formats a dB figure, treating the measurement floor as missing.
func formatDB(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= -99.0 {
		return MissingValue
	}
	return fmt.Sprintf("%.*f", decimals, value)
}

// formatSigned formats a value with an explicit sign, for gain offsets.
func formatSigned(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MissingValue
	}
	return fmt.Sprintf("%+.*f", decimals, value)
}
