// Package generator builds synthetic fill histories.
package generator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/verte-zerg/fuelbook/internal/model"
)

// Options shapes a generated history.
type Options struct {
	Start        time.Time
	Count        int
	Baseline     int64
	TankSize     float64
	Efficiency   float64 // km per storage unit
	UnitPrice    float64
	PartialPct   float64
	NoOdoPct     float64
	SameTimePct  float64
	IDPrefix     string
	VehicleID    string
	MaxDaysApart int
}

// DefaultOptions returns a plausible petrol car.
func DefaultOptions() Options {
	return Options{
		Start:        time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		Count:        40,
		Baseline:     12000,
		TankSize:     50,
		Efficiency:   14,
		UnitPrice:    1.8,
		PartialPct:   0.25,
		NoOdoPct:     0.05,
		SameTimePct:  0.05,
		IDPrefix:     "fill",
		MaxDaysApart: 12,
	}
}

// Generator produces randomized fill histories.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a deterministic Generator.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// History generates opts.Count fills in chronological order. The tank is
// simulated so full fills restore the tank size and partial fills top it up
// only part of the way.
func (g *Generator) History(opts Options) []model.FillRecord {
	if opts.Count <= 0 {
		return nil
	}
	if opts.MaxDaysApart <= 0 {
		opts.MaxDaysApart = 1
	}
	out := make([]model.FillRecord, 0, opts.Count)
	odo := float64(opts.Baseline)
	level := opts.TankSize
	at := opts.Start
	for i := 0; i < opts.Count; i++ {
		if i == 0 || g.rnd.Float64() >= opts.SameTimePct {
			at = at.Add(time.Duration(1+g.rnd.Intn(opts.MaxDaysApart*24)) * time.Hour)
		}
		// Drive between 20% and 80% of the current level.
		used := level * (0.2 + 0.6*g.rnd.Float64())
		odo += used * opts.Efficiency * (0.85 + 0.3*g.rnd.Float64())
		level -= used

		partial := g.rnd.Float64() < opts.PartialPct
		added := opts.TankSize - level
		if partial {
			added *= 0.2 + 0.5*g.rnd.Float64()
		}
		added = round(added, 2)
		level += added

		rec := model.FillRecord{
			ID:        fmt.Sprintf("%s-%04d", opts.IDPrefix, i),
			VehicleID: opts.VehicleID,
			FilledAt:  at,
			Volume:    added,
			Cost:      round(added*opts.UnitPrice*(0.9+0.2*g.rnd.Float64()), 2),
			Partial:   partial,
		}
		if g.rnd.Float64() >= opts.NoOdoPct {
			rec.Odometer = model.Odo(int64(odo))
		}
		out = append(out, rec)
	}
	return out
}

// Shuffle returns a permuted copy of records.
func (g *Generator) Shuffle(records []model.FillRecord) []model.FillRecord {
	out := make([]model.FillRecord, len(records))
	copy(out, records)
	g.rnd.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
