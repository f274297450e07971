package stats

import (
	"math"
	"time"

	"github.com/verte-zerg/fuelbook/internal/fills"
	"github.com/verte-zerg/fuelbook/internal/model"
	"github.com/verte-zerg/fuelbook/internal/units"
)

// GroupStats holds the figures for one tank cycle in display units. Distance
// and Consumption are nil when they cannot be derived.
type GroupStats struct {
	TotalVolume float64
	TotalCost   float64
	Distance    *float64
	Consumption *float64

	km     float64
	volume float64
}

// ComputeGroupStats derives the stats of g given the odometer reading that
// precedes it. Distance needs a closed group, both odometer readings and a
// strictly increasing odometer; consumption additionally needs fuel.
func ComputeGroupStats(g fills.Group, prior *int64, fuel model.FuelType, metric bool) GroupStats {
	volume := g.TotalVolume()
	st := GroupStats{
		TotalVolume: units.Volume(volume, fuel, metric),
		TotalCost:   g.TotalCost(),
		volume:      volume,
	}
	closing, ok := g.ClosingEntry()
	if !ok || closing.Odometer == nil || prior == nil || *closing.Odometer <= *prior {
		return st
	}
	st.km = float64(*closing.Odometer - *prior)
	st.Distance = ptr(units.Distance(st.km, metric))
	if rate, ok := units.Consumption(st.km, volume, fuel, metric); ok {
		st.Consumption = ptr(rate)
	}
	return st
}

// Cycle is a group with its computed stats.
type Cycle struct {
	Group fills.Group
	Prior *int64
	Stats GroupStats
}

// Start is the time of the first fill in the cycle.
func (c Cycle) Start() time.Time {
	return c.Group.First().FilledAt
}

// End is the time of the last fill in the cycle.
func (c Cycle) End() time.Time {
	return c.Group.Entries[len(c.Group.Entries)-1].FilledAt
}

// Cycles computes stats for every group in chronological order. Each group is
// measured from the closing odometer of the group before it; the first group
// is measured from baseline.
func Cycles(gr *fills.Grouping, baseline *int64, fuel model.FuelType, metric bool) []Cycle {
	out := make([]Cycle, 0, len(gr.Groups))
	for i, g := range gr.Groups {
		prior := priorOdometer(gr, i, baseline)
		out = append(out, Cycle{
			Group: g,
			Prior: prior,
			Stats: ComputeGroupStats(g, prior, fuel, metric),
		})
	}
	return out
}

// priorOdometer is the closing odometer of the group before idx. Partial fill
// readings in between are ignored since they do not reset the trip.
func priorOdometer(gr *fills.Grouping, idx int, baseline *int64) *int64 {
	if idx <= 0 {
		return baseline
	}
	closing, ok := gr.Groups[idx-1].ClosingEntry()
	if !ok {
		return nil
	}
	return closing.Odometer
}

// ClosingPoints reduces records to the closing fill of every closed group, in
// time order. Partial fills never appear in chart series.
func ClosingPoints(records []model.FillRecord) []model.FillRecord {
	gr := fills.GroupFills(records)
	out := make([]model.FillRecord, 0, len(gr.Groups))
	for _, g := range gr.Groups {
		if closing, ok := g.ClosingEntry(); ok {
			out = append(out, closing)
		}
	}
	return out
}

// Point is one chart sample, stamped with the closing fill time.
type Point struct {
	At    time.Time
	Value float64
}

// ConsumptionSeries returns the consumption of each cycle that has one. Points
// are stamped at the cycle's closing fill, so their times are a subset of
// ClosingPoints for the same records.
func ConsumptionSeries(cycles []Cycle) []Point {
	out := make([]Point, 0, len(cycles))
	for _, c := range cycles {
		closing, ok := c.Group.ClosingEntry()
		if !ok || c.Stats.Consumption == nil {
			continue
		}
		out = append(out, Point{At: closing.FilledAt, Value: *c.Stats.Consumption})
	}
	return out
}

// UnitPriceSeries returns the average price per display unit of each closed
// cycle with fuel in it, stamped at the closing fill.
func UnitPriceSeries(cycles []Cycle, fuel model.FuelType, metric bool) []Point {
	out := make([]Point, 0, len(cycles))
	for _, c := range cycles {
		closing, ok := c.Group.ClosingEntry()
		if !ok || !(c.Stats.volume > 0) || math.IsInf(c.Stats.volume, 0) {
			continue
		}
		price := units.UnitPrice(c.Stats.TotalCost/c.Stats.volume, fuel, metric)
		out = append(out, Point{At: closing.FilledAt, Value: price})
	}
	return out
}

// Values strips timestamps from points.
func Values(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

func ptr(v float64) *float64 {
	return &v
}
