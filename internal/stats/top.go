package stats

import (
	"sort"

	"github.com/verte-zerg/fuelbook/internal/model"
	"github.com/verte-zerg/fuelbook/internal/units"
)

// RankCycles returns up to n cycles with a known consumption, most efficient
// first. Whether a higher value is better depends on the fuel type. Ties keep
// chronological order.
func RankCycles(cycles []Cycle, fuel model.FuelType, n int) []Cycle {
	if n <= 0 || len(cycles) == 0 {
		return nil
	}
	items := make([]Cycle, 0, len(cycles))
	for _, c := range cycles {
		if c.Stats.Consumption != nil {
			items = append(items, c)
		}
	}
	lower := units.LowerIsBetter(fuel)
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := *items[i].Stats.Consumption, *items[j].Stats.Consumption
		if lower {
			return ci < cj
		}
		return ci > cj
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}

// WorstCycles returns up to n cycles with a known consumption, least
// efficient first.
func WorstCycles(cycles []Cycle, fuel model.FuelType, n int) []Cycle {
	ranked := RankCycles(cycles, fuel, len(cycles))
	out := make([]Cycle, 0, len(ranked))
	for i := len(ranked) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, ranked[i])
	}
	return out
}
