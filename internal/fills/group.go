// Package fills merges partial fills into tank cycles and classifies new
// entries as likely partial fills.
package fills

import (
	"sort"

	"github.com/verte-zerg/fuelbook/internal/model"
)

// Group is one tank cycle: a chronological run of fills where only the last
// entry may be a full fill. Entries borrow from the owning Grouping.
type Group struct {
	Entries []model.FillRecord
}

// Closed reports whether the group ends with a full fill.
func (g Group) Closed() bool {
	return len(g.Entries) > 0 && !g.Entries[len(g.Entries)-1].Partial
}

// ClosingEntry returns the full fill that closes the group.
func (g Group) ClosingEntry() (model.FillRecord, bool) {
	if !g.Closed() {
		return model.FillRecord{}, false
	}
	return g.Entries[len(g.Entries)-1], true
}

// First returns the oldest entry.
func (g Group) First() model.FillRecord {
	return g.Entries[0]
}

// TotalVolume sums entry volumes in the storage unit.
func (g Group) TotalVolume() float64 {
	var sum float64
	for _, e := range g.Entries {
		sum += e.Volume
	}
	return sum
}

// TotalCost sums entry costs.
func (g Group) TotalCost() float64 {
	var sum float64
	for _, e := range g.Entries {
		sum += e.Cost
	}
	return sum
}

// Grouping is the result of one GroupFills call: the sorted snapshot, its
// groups and an id index over them.
type Grouping struct {
	Groups  []Group
	records []model.FillRecord
	index   map[string]int
}

// GroupFills sorts records by time (ties by ID) and partitions them into
// groups. The input slice is not modified.
func GroupFills(records []model.FillRecord) *Grouping {
	sorted := make([]model.FillRecord, len(records))
	copy(sorted, records)
	SortRecords(sorted)

	gr := &Grouping{
		records: sorted,
		index:   make(map[string]int, len(sorted)),
	}
	start := 0
	for i, rec := range sorted {
		if rec.Partial {
			continue
		}
		gr.emit(start, i+1)
		start = i + 1
	}
	if start < len(sorted) {
		gr.emit(start, len(sorted))
	}
	return gr
}

func (gr *Grouping) emit(start, end int) {
	idx := len(gr.Groups)
	gr.Groups = append(gr.Groups, Group{Entries: gr.records[start:end:end]})
	for _, rec := range gr.records[start:end] {
		gr.index[rec.ID] = idx
	}
}

// Records returns the sorted snapshot the groups were built from.
func (gr *Grouping) Records() []model.FillRecord {
	return gr.records
}

// IndexOf returns the position of the group holding the record.
func (gr *Grouping) IndexOf(id string) (int, bool) {
	idx, ok := gr.index[id]
	return idx, ok
}

// GroupContaining returns every entry economically tied to the record.
func (gr *Grouping) GroupContaining(id string) (Group, bool) {
	idx, ok := gr.index[id]
	if !ok {
		return Group{}, false
	}
	return gr.Groups[idx], true
}

// Flatten returns all entries of all groups in order.
func (gr *Grouping) Flatten() []model.FillRecord {
	out := make([]model.FillRecord, 0, len(gr.records))
	for _, g := range gr.Groups {
		out = append(out, g.Entries...)
	}
	return out
}

// SortRecords orders records by fill time, breaking ties by ID.
func SortRecords(records []model.FillRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].FilledAt.Equal(records[j].FilledAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].FilledAt.Before(records[j].FilledAt)
	})
}

// Without returns a copy of records minus the one with the given id.
func Without(records []model.FillRecord, id string) []model.FillRecord {
	out := make([]model.FillRecord, 0, len(records))
	for _, rec := range records {
		if rec.ID == id {
			continue
		}
		out = append(out, rec)
	}
	return out
}
