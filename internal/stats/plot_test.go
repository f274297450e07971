package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestPlotSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "Test Plot", []Series{
		{Name: "A", Values: []float64{1, 2, 3, 2, 1}},
		{Name: "B", Unit: "km/L", Values: []float64{1, 1, 2, 3, 4}},
	}, 5, 4)
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Test Plot") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, scaleNote) {
		t.Fatalf("expected scale note in output")
	}
	if !strings.Contains(out, "B: min=1.00 km/L max=4.00 km/L") {
		t.Fatalf("expected unit on min/max line:\n%s", out)
	}
	if !strings.Contains(out, "Legend:") {
		t.Fatalf("expected legend in output")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	expectedMin := 1 + 1 + 2 + 4 + 1
	if len(lines) < expectedMin {
		t.Fatalf("expected at least %d lines of output, got %d", expectedMin, len(lines))
	}
}

func TestPlotSeriesDateAxis(t *testing.T) {
	from := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := PlotSeriesWithColor(&buf, "", []Series{{Name: "A", Values: []float64{3, 1, 2}}}, Span{From: from, To: to}, 30, 3, false)
	if err != nil {
		t.Fatalf("plot: %v", err)
	}
	if !strings.Contains(buf.String(), "2024-01-05") || !strings.Contains(buf.String(), "2024-09-30") {
		t.Fatalf("expected date axis:\n%s", buf.String())
	}
}

func TestPlotSeriesEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotSeries(&buf, "Empty", []Series{{Name: "A"}}, 10, 4); err != nil {
		t.Fatalf("plot: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestSpanOf(t *testing.T) {
	a := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	sp := SpanOf([]Point{{At: a}, {At: b}}, []Point{{At: c}})
	if !sp.From.Equal(b) || !sp.To.Equal(c) {
		t.Fatalf("unexpected span: %+v", sp)
	}
	if sp := SpanOf(); !sp.From.IsZero() || !sp.To.IsZero() {
		t.Fatalf("expected zero span")
	}
}
