// Package stats contains fuel statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/fuelbook/internal/units"
)

const sparkChars = " .:-=+*#%@"

// DateLayout is the day format shared by reports and exports.
const DateLayout = "2006-01-02"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// FormatOptional renders v with format, or "-" when it is unknown.
func FormatOptional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

// SummaryLines returns label/value pairs for a window rollup.
func SummaryLines(ws WindowStats, labels units.Labels, avgRefill *float64) [][2]string {
	return [][2]string{
		{"Window", ws.Window.String()},
		{"Fills", fmt.Sprintf("%d", ws.Fills)},
		{"Cycles", fmt.Sprintf("%d", len(ws.Cycles))},
		{"Distance", FormatOptional(ws.TotalDistance, "%.0f "+labels.Distance)},
		{"Fuel (measured)", fmt.Sprintf("%.2f %s", ws.TotalFuel, labels.Volume)},
		{"Fuel (purchased)", fmt.Sprintf("%.2f %s", ws.FuelPurchased, labels.Volume)},
		{"Cost", fmt.Sprintf("%.2f", ws.TotalCost)},
		{"Avg consumption", FormatOptional(ws.AverageConsumption, "%.2f "+labels.Consumption)},
		{"Cost per " + labels.Distance, FormatOptional(ws.CostPerDistance, "%.3f")},
		{"Avg price per " + labels.Volume, FormatOptional(ws.AvgUnitPrice, "%.3f")},
		{"Avg refill", FormatOptional(avgRefill, "%.2f "+labels.Volume)},
	}
}

// RenderSummary prints a summary block for a window rollup.
func RenderSummary(w io.Writer, ws WindowStats, labels units.Labels, avgRefill *float64) error {
	if ws.Fills == 0 {
		_, err := fmt.Fprintln(w, "No fills found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	lines := SummaryLines(ws, labels, avgRefill)
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []string{l[0] + ":", l[1]})
	}
	for _, line := range formatTable(nil, rows, nil) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// CycleRows formats cycles as table rows, newest first.
func CycleRows(cycles []Cycle) [][]string {
	rows := make([][]string, 0, len(cycles))
	for i := len(cycles) - 1; i >= 0; i-- {
		c := cycles[i]
		state := "open"
		if c.Group.Closed() {
			state = "closed"
		}
		rows = append(rows, []string{
			c.End().Format(DateLayout),
			fmt.Sprintf("%d", len(c.Group.Entries)),
			state,
			fmt.Sprintf("%.2f", c.Stats.TotalVolume),
			fmt.Sprintf("%.2f", c.Stats.TotalCost),
			FormatOptional(c.Stats.Distance, "%.0f"),
			FormatOptional(c.Stats.Consumption, "%.2f"),
		})
	}
	return rows
}

// CycleHeaders returns the column titles for CycleRows.
func CycleHeaders(labels units.Labels) []string {
	return []string{
		"Date",
		"Fills",
		"State",
		"Volume (" + labels.Volume + ")",
		"Cost",
		"Distance (" + labels.Distance + ")",
		labels.Consumption,
	}
}

// RenderCycleTable prints one row per tank cycle.
func RenderCycleTable(w io.Writer, cycles []Cycle, labels units.Labels) error {
	if len(cycles) == 0 {
		_, err := fmt.Fprintln(w, "No cycles found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Tank Cycles"); err != nil {
		return err
	}
	rightAlign := map[int]bool{1: true, 3: true, 4: true, 5: true, 6: true}
	for _, line := range formatTable(CycleHeaders(labels), CycleRows(cycles), rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// RenderCurves prints consumption and unit price curves.
func RenderCurves(w io.Writer, consumption, price []Point, labels units.Labels, window int) error {
	return RenderCurvesWithSize(w, consumption, price, labels, window, 0, 10, false)
}

// RenderCurvesWithSize prints the curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, consumption, price []Point, labels units.Labels, window, totalWidth, height int, useColor bool) error {
	if len(consumption) == 0 && len(price) == 0 {
		return nil
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Consumption & Price", []Series{
		{Name: "consumption", Unit: labels.Consumption, Values: MovingAverage(Values(consumption), window)},
		{Name: "price", Unit: "/" + labels.Volume, Values: MovingAverage(Values(price), window)},
	}, SpanOf(consumption, price), width, height, useColor)
}
