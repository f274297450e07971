package generator

import (
	"testing"
)

func TestHistoryShape(t *testing.T) {
	opts := DefaultOptions()
	opts.VehicleID = "v1"
	recs := NewSeeded(3).History(opts)
	if len(recs) != opts.Count {
		t.Fatalf("expected %d records, got %d", opts.Count, len(recs))
	}
	var lastOdo int64
	for i, rec := range recs {
		if rec.VehicleID != "v1" {
			t.Fatalf("record %d: unexpected vehicle %q", i, rec.VehicleID)
		}
		if i > 0 && rec.FilledAt.Before(recs[i-1].FilledAt) {
			t.Fatalf("record %d goes back in time", i)
		}
		if rec.Volume < 0 || rec.Volume > opts.TankSize {
			t.Fatalf("record %d: volume %.2f out of range", i, rec.Volume)
		}
		if rec.Odometer != nil {
			if *rec.Odometer < lastOdo {
				t.Fatalf("record %d: odometer went backwards", i)
			}
			lastOdo = *rec.Odometer
		}
	}
}

func TestSeededIsDeterministic(t *testing.T) {
	opts := DefaultOptions()
	a := NewSeeded(42).History(opts)
	b := NewSeeded(42).History(opts)
	for i := range a {
		if a[i].Volume != b[i].Volume || !a[i].FilledAt.Equal(b[i].FilledAt) || a[i].Partial != b[i].Partial {
			t.Fatalf("record %d differs between identical seeds", i)
		}
	}
}

func TestHistoryEmpty(t *testing.T) {
	opts := DefaultOptions()
	opts.Count = 0
	if recs := New().History(opts); recs != nil {
		t.Fatalf("expected nil history, got %d records", len(recs))
	}
}

func TestShuffleKeepsRecords(t *testing.T) {
	g := NewSeeded(1)
	recs := g.History(DefaultOptions())
	shuffled := g.Shuffle(recs)
	if len(shuffled) != len(recs) {
		t.Fatalf("shuffle changed length")
	}
	seen := make(map[string]bool, len(recs))
	for _, r := range shuffled {
		seen[r.ID] = true
	}
	for _, r := range recs {
		if !seen[r.ID] {
			t.Fatalf("record %s lost in shuffle", r.ID)
		}
	}
}
