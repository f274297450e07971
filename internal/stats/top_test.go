package stats

import (
	"testing"

	"github.com/verte-zerg/fuelbook/internal/fills"
	"github.com/verte-zerg/fuelbook/internal/model"
)

func TestRankCycles(t *testing.T) {
	records := []model.FillRecord{
		fill("a", 0, 40, false, model.Odo(1000)),
		fill("b", 1, 40, false, model.Odo(1400)),
		fill("c", 2, 40, false, model.Odo(2000)),
		fill("d", 3, 40, false, model.Odo(2480)),
		fill("e", 4, 5, true, model.Odo(2500)),
	}
	cycles := Cycles(fills.GroupFills(records), nil, model.FuelLiquid, true)

	top := RankCycles(cycles, model.FuelLiquid, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(top))
	}
	if top[0].Group.Entries[0].ID != "c" || top[1].Group.Entries[0].ID != "d" {
		t.Fatalf("unexpected order: %s %s", top[0].Group.Entries[0].ID, top[1].Group.Entries[0].ID)
	}

	worst := WorstCycles(cycles, model.FuelLiquid, 1)
	if len(worst) != 1 || worst[0].Group.Entries[0].ID != "b" {
		t.Fatalf("unexpected worst cycle: %+v", worst)
	}

	electric := Cycles(fills.GroupFills(records), nil, model.FuelElectric, true)
	best := RankCycles(electric, model.FuelElectric, 1)
	if len(best) != 1 || best[0].Group.Entries[0].ID != "c" {
		t.Fatalf("expected lowest kWh/100km first, got %+v", best)
	}

	if got := RankCycles(cycles, model.FuelLiquid, 0); got != nil {
		t.Fatalf("expected nil for n=0")
	}
}
