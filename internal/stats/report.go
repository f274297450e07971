package stats

import (
	"context"
	"time"

	"github.com/verte-zerg/fuelbook/internal/fills"
	"github.com/verte-zerg/fuelbook/internal/model"
	"github.com/verte-zerg/fuelbook/internal/store"
	"github.com/verte-zerg/fuelbook/internal/units"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Vehicle     model.Vehicle
	Records     []model.FillRecord
	Labels      units.Labels
	Metric      bool
	Window      WindowStats
	History     []Cycle
	Monthly     []MonthStats
	AvgRefill   *float64
	Consumption []Point
	UnitPrice   []Point
}

// ResolveWindow turns the period and explicit bounds of cfg into a window.
// Since and Until take precedence over the period.
func ResolveWindow(cfg model.StatsConfig, now time.Time) (Window, error) {
	w, err := PeriodWindow(cfg.Period, now)
	if err != nil {
		return Window{}, err
	}
	if cfg.Since != nil {
		w.Start = *cfg.Since
	}
	if cfg.Until != nil {
		w.End = *cfg.Until
	}
	return w, w.Validate()
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig, cls model.ClassifierConfig) (Report, error) {
	vehicle, err := st.FindVehicle(ctx, cfg.VehicleID)
	if err != nil {
		return Report{}, err
	}
	records, err := st.ListFills(ctx, vehicle.ID)
	if err != nil {
		return Report{}, err
	}
	return NewReport(vehicle, records, cfg, cls, time.Now())
}

// NewReport computes a report from an in-memory snapshot.
func NewReport(vehicle model.Vehicle, records []model.FillRecord, cfg model.StatsConfig, cls model.ClassifierConfig, now time.Time) (Report, error) {
	w, err := ResolveWindow(cfg, now)
	if err != nil {
		return Report{}, err
	}
	fuel := vehicle.FuelType
	ws, err := ComputeWindowStats(records, w, vehicle.BaselineOdometer, fuel, cfg.Metric)
	if err != nil {
		return Report{}, err
	}
	monthly, err := Monthly(records, vehicle.BaselineOdometer, fuel, cfg.Metric)
	if err != nil {
		return Report{}, err
	}

	rep := Report{
		Vehicle:     vehicle,
		Records:     records,
		Labels:      units.LabelsFor(fuel, cfg.Metric),
		Metric:      cfg.Metric,
		Window:      ws,
		History:     Cycles(fills.GroupFills(records), vehicle.BaselineOdometer, fuel, cfg.Metric),
		Monthly:     monthly,
		Consumption: ConsumptionSeries(ws.Cycles),
		UnitPrice:   UnitPriceSeries(ws.Cycles, fuel, cfg.Metric),
	}
	classifier := fills.NewClassifier(records, fills.WithConfig(cls))
	if ref, ok := classifier.ReferenceVolume(); ok {
		rep.AvgRefill = ptr(units.Volume(ref, fuel, cfg.Metric))
	}
	return rep, nil
}
