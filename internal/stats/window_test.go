package stats

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/fuelbook/internal/fills"
	"github.com/verte-zerg/fuelbook/internal/generator"
	"github.com/verte-zerg/fuelbook/internal/model"
)

func history() []model.FillRecord {
	return []model.FillRecord{
		fill("a", 0, 40, false, model.Odo(1000)),
		fill("b", 10, 10, true, model.Odo(1200)),
		fill("c", 12, 30, false, model.Odo(1500)),
		fill("d", 20, 50, false, model.Odo(2000)),
		fill("e", 30, 20, true, nil),
	}
}

func TestWindowValidate(t *testing.T) {
	w := Window{Start: base, End: base.Add(-time.Hour)}
	err := w.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidWindow))

	_, err = ComputeWindowStats(history(), w, nil, model.FuelLiquid, true)
	assert.True(t, errors.Is(err, ErrInvalidWindow))

	assert.NoError(t, Window{Start: base, End: base}.Validate())
	assert.NoError(t, Window{End: base}.Validate())
	assert.NoError(t, AllTime().Validate())
}

func TestWindowContainsIsHalfOpen(t *testing.T) {
	w := Window{Start: base, End: base.AddDate(0, 0, 1)}
	assert.True(t, w.Contains(base))
	assert.True(t, w.Contains(base.Add(23*time.Hour)))
	assert.False(t, w.Contains(base.AddDate(0, 0, 1)))
	assert.False(t, w.Contains(base.Add(-time.Second)))
	assert.True(t, AllTime().Contains(time.Time{}.Add(time.Hour)))
}

func TestPeriodWindow(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		period string
		start  time.Time
	}{
		{period: "all"},
		{period: ""},
		{period: "30d", start: now.AddDate(0, 0, -30)},
		{period: "90D", start: now.AddDate(0, 0, -90)},
		{period: "year", start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{period: "month", start: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			w, err := PeriodWindow(tt.period, now)
			require.NoError(t, err)
			assert.Equal(t, tt.start, w.Start)
			assert.True(t, w.End.IsZero())
		})
	}
	_, err := PeriodWindow("fortnight", now)
	assert.Error(t, err)
}

func TestWindowStatsAllTime(t *testing.T) {
	ws, err := ComputeWindowStats(history(), AllTime(), model.Odo(600), model.FuelLiquid, true)
	require.NoError(t, err)

	assert.Equal(t, 5, ws.Fills)
	require.Len(t, ws.Cycles, 4)
	require.NotNil(t, ws.TotalDistance)
	// 400 + 500 + 500
	assert.Equal(t, 1400.0, *ws.TotalDistance)
	assert.Equal(t, 130.0, ws.TotalFuel)
	assert.Equal(t, 150.0, ws.FuelPurchased)
	assert.Equal(t, 225.0, ws.TotalCost)
	require.NotNil(t, ws.AverageConsumption)
	assert.InDelta(t, 1400.0/130.0, *ws.AverageConsumption, 1e-9)
	require.NotNil(t, ws.CostPerDistance)
	assert.InDelta(t, 195.0/1400.0, *ws.CostPerDistance, 1e-9)
	require.NotNil(t, ws.AvgUnitPrice)
	assert.InDelta(t, 1.5, *ws.AvgUnitPrice, 1e-9)
}

func TestWindowStatsFlowAverageIsNotMeanOfRates(t *testing.T) {
	records := []model.FillRecord{
		fill("a", 0, 10, false, model.Odo(100)),
		fill("b", 1, 50, false, model.Odo(1100)),
	}
	ws, err := ComputeWindowStats(records, AllTime(), model.Odo(0), model.FuelLiquid, true)
	require.NoError(t, err)
	require.NotNil(t, ws.AverageConsumption)
	// rates are 10 and 20 km/L; the flow value is 1100/60
	assert.InDelta(t, 1100.0/60.0, *ws.AverageConsumption, 1e-9)
}

func TestWindowStatsKeepsFullHistoryPrior(t *testing.T) {
	records := history()
	// only group {d}
	w := Window{Start: base.AddDate(0, 0, 15), End: base.AddDate(0, 0, 25)}
	ws, err := ComputeWindowStats(records, w, nil, model.FuelLiquid, true)
	require.NoError(t, err)

	require.Len(t, ws.Cycles, 1)
	require.NotNil(t, ws.Cycles[0].Prior)
	assert.Equal(t, int64(1500), *ws.Cycles[0].Prior)
	require.NotNil(t, ws.TotalDistance)
	assert.Equal(t, 500.0, *ws.TotalDistance)
	assert.Equal(t, 50.0, ws.TotalFuel)
}

func TestWindowStatsRegroupsFilteredRecords(t *testing.T) {
	records := history()
	// cuts through group {b, c}: only c is inside
	w := Window{Start: base.AddDate(0, 0, 11), End: base.AddDate(0, 0, 13)}
	ws, err := ComputeWindowStats(records, w, nil, model.FuelLiquid, true)
	require.NoError(t, err)

	require.Len(t, ws.Cycles, 1)
	assert.Len(t, ws.Cycles[0].Group.Entries, 1)
	assert.Equal(t, 30.0, ws.Cycles[0].Stats.TotalVolume)
	require.NotNil(t, ws.TotalDistance)
	assert.Equal(t, 500.0, *ws.TotalDistance)
	assert.Equal(t, 45.0, ws.TotalCost)
}

func TestWindowStatsEmptyWindow(t *testing.T) {
	w := Window{Start: base.AddDate(1, 0, 0)}
	ws, err := ComputeWindowStats(history(), w, nil, model.FuelLiquid, true)
	require.NoError(t, err)
	assert.Zero(t, ws.Fills)
	assert.Empty(t, ws.Cycles)
	assert.Nil(t, ws.TotalDistance)
	assert.Nil(t, ws.AverageConsumption)
	assert.Nil(t, ws.AvgUnitPrice)
	assert.Zero(t, ws.TotalCost)
}

func TestWindowStatsOnlyOpenGroup(t *testing.T) {
	w := Window{Start: base.AddDate(0, 0, 25)}
	ws, err := ComputeWindowStats(history(), w, nil, model.FuelLiquid, true)
	require.NoError(t, err)
	require.Len(t, ws.Cycles, 1)
	assert.False(t, ws.Cycles[0].Group.Closed())
	assert.Nil(t, ws.TotalDistance)
	assert.Zero(t, ws.TotalFuel)
	assert.Equal(t, 20.0, ws.FuelPurchased)
	assert.Equal(t, 30.0, ws.TotalCost)
}

func TestWindowedDistanceMatchesFullChain(t *testing.T) {
	for seed := int64(1); seed <= 15; seed++ {
		gen := generator.NewSeeded(seed)
		opts := generator.DefaultOptions()
		opts.PartialPct = 0.35
		opts.SameTimePct = 0
		records := gen.History(opts)
		baseline := model.Odo(opts.Baseline)

		full := Cycles(fills.GroupFills(records), baseline, model.FuelLiquid, true)
		for i, c := range full {
			w := Window{Start: c.Start(), End: c.End().Add(time.Nanosecond)}
			ws, err := ComputeWindowStats(records, w, baseline, model.FuelLiquid, true)
			require.NoError(t, err)
			require.Len(t, ws.Cycles, 1, "seed %d cycle %d", seed, i)

			got := ws.Cycles[0].Stats
			assert.Equal(t, c.Stats.Distance, got.Distance, "seed %d cycle %d", seed, i)
			assert.Equal(t, c.Stats.Consumption, got.Consumption, "seed %d cycle %d", seed, i)
			assert.InDelta(t, c.Stats.TotalVolume, got.TotalVolume, 1e-9)
		}
	}
}

func TestWindowStatsAdditiveAcrossSplit(t *testing.T) {
	gen := generator.NewSeeded(42)
	opts := generator.DefaultOptions()
	opts.SameTimePct = 0
	records := gen.History(opts)
	baseline := model.Odo(opts.Baseline)

	all, err := ComputeWindowStats(records, AllTime(), baseline, model.FuelLiquid, true)
	require.NoError(t, err)

	// split on a closing fill so no group straddles the boundary
	points := ClosingPoints(records)
	require.NotEmpty(t, points)
	split := points[len(points)/2].FilledAt.Add(time.Nanosecond)

	left, err := ComputeWindowStats(records, Window{End: split}, baseline, model.FuelLiquid, true)
	require.NoError(t, err)
	right, err := ComputeWindowStats(records, Window{Start: split}, baseline, model.FuelLiquid, true)
	require.NoError(t, err)

	assert.Equal(t, all.Fills, left.Fills+right.Fills)
	assert.InDelta(t, all.TotalCost, left.TotalCost+right.TotalCost, 1e-6)
	assert.InDelta(t, all.TotalFuel, left.TotalFuel+right.TotalFuel, 1e-6)
	assert.InDelta(t, deref(all.TotalDistance), deref(left.TotalDistance)+deref(right.TotalDistance), 1e-6)
}

func TestMonthly(t *testing.T) {
	records := []model.FillRecord{
		{ID: "a", FilledAt: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Volume: 40, Cost: 60, Odometer: model.Odo(1000)},
		{ID: "b", FilledAt: time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC), Volume: 40, Cost: 60, Odometer: model.Odo(1500)},
		{ID: "c", FilledAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), Volume: 20, Cost: 40, Odometer: model.Odo(1800)},
	}
	months, err := Monthly(records, nil, model.FuelLiquid, true)
	require.NoError(t, err)
	require.Len(t, months, 3)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), months[0].Month)
	assert.Equal(t, 2, months[0].Fills)
	require.NotNil(t, months[0].TotalDistance)
	assert.Equal(t, 500.0, *months[0].TotalDistance)

	assert.Zero(t, months[1].Fills)
	assert.Nil(t, months[1].TotalDistance)

	require.NotNil(t, months[2].TotalDistance)
	assert.Equal(t, 300.0, *months[2].TotalDistance)
	assert.InDelta(t, 2.0, *months[2].AvgUnitPrice, 1e-9)

	empty, err := Monthly(nil, nil, model.FuelLiquid, true)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
