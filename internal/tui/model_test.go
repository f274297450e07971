package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/fuelbook/internal/model"
)

var now = time.Date(2024, 4, 2, 18, 45, 0, 0, time.UTC)

func history() []model.FillRecord {
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	out := make([]model.FillRecord, 0, 3)
	for i := 0; i < 3; i++ {
		out = append(out, model.FillRecord{
			ID:       string(rune('a' + i)),
			FilledAt: base.AddDate(0, 0, 7*i),
			Volume:   40,
			Cost:     70,
			Odometer: model.Odo(int64(10000 + 600*i)),
		})
	}
	return out
}

func newForm(opts Options) *Model {
	if opts.Vehicle.Name == "" {
		opts.Vehicle = model.Vehicle{ID: "v1", Name: "golf", FuelType: model.FuelLiquid}
	}
	opts.Now = now
	return NewModel(opts)
}

func typeText(m *Model, s string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func backspace(m *Model, n int) {
	for i := 0; i < n; i++ {
		m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	}
}

func TestSuggestionPrechecksPartial(t *testing.T) {
	m := newForm(Options{History: history(), Metric: true})
	typeText(m, "12")
	if !m.partial || !m.suggested {
		t.Fatalf("expected partial suggestion for 12 L")
	}
	backspace(m, 2)
	if m.partial {
		t.Fatalf("expected cleared suggestion on empty volume")
	}
	typeText(m, "41")
	if m.partial {
		t.Fatalf("expected full fill for 41 L")
	}
}

func TestNoSuggestionWithThinHistory(t *testing.T) {
	m := newForm(Options{History: history()[:2], Metric: true})
	typeText(m, "5")
	if m.partial {
		t.Fatalf("expected no suggestion with two full fills")
	}
	if !strings.Contains(m.renderFooter(), "after 3 full fills (have 2)") {
		t.Fatalf("unexpected footer: %q", m.renderFooter())
	}
}

func TestUserToggleWins(t *testing.T) {
	m := newForm(Options{History: history(), Metric: true})
	typeText(m, "12")
	m.setFocus(fieldPartial)
	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if m.partial || !m.touched {
		t.Fatalf("expected explicit full fill")
	}
	m.setFocus(fieldVolume)
	backspace(m, 2)
	typeText(m, "3")
	if m.partial {
		t.Fatalf("suggestion must not override the user's choice")
	}
}

func TestFocusCycles(t *testing.T) {
	m := newForm(Options{Metric: true})
	if m.focus != fieldVolume {
		t.Fatalf("expected volume focused first, got %d", m.focus)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != fieldPartial {
		t.Fatalf("expected partial focused, got %d", m.focus)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != fieldDate {
		t.Fatalf("expected wrap to date, got %d", m.focus)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.focus != fieldPartial {
		t.Fatalf("expected wrap back to partial, got %d", m.focus)
	}
}

func TestRecordImperial(t *testing.T) {
	m := newForm(Options{Metric: false})
	m.inputs[fieldVolume].SetValue("10")
	m.inputs[fieldOdometer].SetValue("1000")
	m.inputs[fieldCost].SetValue("35,50")
	m.inputs[fieldNote].SetValue("  diesel  ")
	rec, err := m.Record()
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.VehicleID != "v1" || rec.Note != "diesel" || rec.Cost != 35.5 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Volume < 37.85 || rec.Volume > 37.86 {
		t.Fatalf("expected litres, got %.3f", rec.Volume)
	}
	if rec.Odometer == nil || *rec.Odometer != 1609 {
		t.Fatalf("expected km odometer, got %v", rec.Odometer)
	}
	if !rec.FilledAt.Equal(now) {
		t.Fatalf("expected default date %s, got %s", now, rec.FilledAt)
	}
}

func TestSubmitValidationError(t *testing.T) {
	m := newForm(Options{Metric: true})
	if cmd := m.submit(); cmd != nil {
		t.Fatalf("expected no command on invalid form")
	}
	if !strings.Contains(m.errMsg, "volume") {
		t.Fatalf("expected volume error, got %q", m.errMsg)
	}
	if !strings.Contains(m.View(), m.errMsg) {
		t.Fatalf("expected error in view")
	}
}

func TestSubmitSaves(t *testing.T) {
	var got model.FillRecord
	m := newForm(Options{Metric: true, Save: func(_ context.Context, rec model.FillRecord) (model.FillRecord, error) {
		got = rec
		rec.ID = "new-id"
		return rec, nil
	}})
	typeText(m, "30")
	m.setFocus(fieldPartial)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil || !m.saving {
		t.Fatalf("expected save command")
	}
	m.Update(cmd())
	saved, ok := m.Saved()
	if !ok || saved.ID != "new-id" || got.Volume != 30 {
		t.Fatalf("unexpected save result: %+v %+v", saved, got)
	}
}

func TestSubmitSaveError(t *testing.T) {
	m := newForm(Options{Metric: true, Save: func(context.Context, model.FillRecord) (model.FillRecord, error) {
		return model.FillRecord{}, errors.New("disk full")
	}})
	typeText(m, "30")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m.Update(cmd())
	if _, ok := m.Saved(); ok {
		t.Fatalf("expected no saved record")
	}
	if m.errMsg != "disk full" || m.saving {
		t.Fatalf("unexpected state: %q saving=%v", m.errMsg, m.saving)
	}
}

func TestCancel(t *testing.T) {
	m := newForm(Options{Metric: true})
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !m.Cancelled() {
		t.Fatalf("expected cancelled form")
	}
}

func TestFooterShowsReferenceAndLastCycle(t *testing.T) {
	m := newForm(Options{History: history(), Metric: true})
	footer := m.renderFooter()
	for _, want := range []string{"Avg refill 40.00 L", "Last cycle 15.00 km/L", "Last odometer 11200 km"} {
		if !strings.Contains(footer, want) {
			t.Fatalf("footer missing %q: %s", want, footer)
		}
	}
}
