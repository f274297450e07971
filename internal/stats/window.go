package stats

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/fuelbook/internal/fills"
	"github.com/verte-zerg/fuelbook/internal/model"
	"github.com/verte-zerg/fuelbook/internal/units"
)

// ErrInvalidWindow is returned for a window that ends before it starts.
var ErrInvalidWindow = errors.New("invalid reporting window")

// Period names accepted by PeriodWindow.
const (
	PeriodAll   = "all"
	Period30d   = "30d"
	Period90d   = "90d"
	PeriodYear  = "year"
	PeriodMonth = "month"
)

// Periods lists the accepted period names.
var Periods = []string{PeriodAll, Period30d, Period90d, PeriodYear, PeriodMonth}

// Window is the half-open interval [Start, End). A zero Start reaches back to
// the first record and a zero End is unbounded.
type Window struct {
	Start time.Time
	End   time.Time
}

// AllTime returns the unbounded window.
func AllTime() Window {
	return Window{}
}

// Validate rejects windows whose end precedes their start.
func (w Window) Validate() error {
	if !w.Start.IsZero() && !w.End.IsZero() && w.End.Before(w.Start) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidWindow,
			w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	return nil
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && !t.Before(w.End) {
		return false
	}
	return true
}

// String renders the window for headers.
func (w Window) String() string {
	start, end := "start", "now"
	if !w.Start.IsZero() {
		start = w.Start.Format(DateLayout)
	}
	if !w.End.IsZero() {
		end = w.End.Format(DateLayout)
	}
	return start + " .. " + end
}

// PeriodWindow resolves a named period relative to now.
func PeriodWindow(period string, now time.Time) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "", PeriodAll:
		return AllTime(), nil
	case Period30d:
		return Window{Start: now.AddDate(0, 0, -30)}, nil
	case Period90d:
		return Window{Start: now.AddDate(0, 0, -90)}, nil
	case PeriodYear:
		return Window{Start: time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())}, nil
	case PeriodMonth:
		return Window{Start: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())}, nil
	}
	return Window{}, fmt.Errorf("unknown period %q (available: %s)", period, strings.Join(Periods, ", "))
}

// WindowStats rolls up the cycles inside a reporting window. Distance and
// fuel totals only count cycles with a known distance so the average
// consumption is a flow value (total distance over total fuel).
type WindowStats struct {
	Window             Window
	Fills              int
	Cycles             []Cycle
	TotalDistance      *float64
	TotalFuel          float64
	FuelPurchased      float64
	TotalCost          float64
	AverageConsumption *float64
	CostPerDistance    *float64
	AvgUnitPrice       *float64
}

// ComputeWindowStats regroups the records that fall inside w and measures each
// resulting group against the full-history odometer chain, so a window
// boundary never invents a gap in the trip meter.
func ComputeWindowStats(records []model.FillRecord, w Window, baseline *int64, fuel model.FuelType, metric bool) (WindowStats, error) {
	if err := w.Validate(); err != nil {
		return WindowStats{}, err
	}
	full := fills.GroupFills(records)

	inside := make([]model.FillRecord, 0, len(records))
	for _, rec := range full.Records() {
		if w.Contains(rec.FilledAt) {
			inside = append(inside, rec)
		}
	}
	filtered := fills.GroupFills(inside)

	ws := WindowStats{Window: w, Fills: len(inside)}
	var km, fuelUsed, costUsed, purchased float64
	for _, g := range filtered.Groups {
		idx, _ := full.IndexOf(g.First().ID)
		prior := priorOdometer(full, idx, baseline)
		st := ComputeGroupStats(g, prior, fuel, metric)
		ws.Cycles = append(ws.Cycles, Cycle{Group: g, Prior: prior, Stats: st})

		ws.TotalCost += st.TotalCost
		purchased += st.volume
		if st.Distance == nil {
			continue
		}
		km += st.km
		fuelUsed += st.volume
		costUsed += st.TotalCost
	}

	ws.FuelPurchased = units.Volume(purchased, fuel, metric)
	ws.TotalFuel = units.Volume(fuelUsed, fuel, metric)
	if km > 0 {
		dist := units.Distance(km, metric)
		ws.TotalDistance = ptr(dist)
		ws.CostPerDistance = ptr(costUsed / dist)
		if rate, ok := units.Consumption(km, fuelUsed, fuel, metric); ok {
			ws.AverageConsumption = ptr(rate)
		}
	}
	if purchased > 0 {
		ws.AvgUnitPrice = ptr(units.UnitPrice(ws.TotalCost/purchased, fuel, metric))
	}
	return ws, nil
}

// MonthStats is the rollup of one calendar month.
type MonthStats struct {
	Month time.Time
	WindowStats
}

// Monthly rolls up every calendar month between the first and last record.
// Months without fills are included so the series has no holes.
func Monthly(records []model.FillRecord, baseline *int64, fuel model.FuelType, metric bool) ([]MonthStats, error) {
	if len(records) == 0 {
		return nil, nil
	}
	sorted := fills.GroupFills(records).Records()
	first := sorted[0].FilledAt
	last := sorted[len(sorted)-1].FilledAt
	month := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, first.Location())

	var out []MonthStats
	for !month.After(last) {
		next := month.AddDate(0, 1, 0)
		ws, err := ComputeWindowStats(sorted, Window{Start: month, End: next}, baseline, fuel, metric)
		if err != nil {
			return nil, err
		}
		out = append(out, MonthStats{Month: month, WindowStats: ws})
		month = next
	}
	return out, nil
}
