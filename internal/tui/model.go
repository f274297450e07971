// Package tui provides the Bubble Tea fill entry form.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/fuelbook/internal/fills"
	"github.com/verte-zerg/fuelbook/internal/importer"
	"github.com/verte-zerg/fuelbook/internal/model"
	"github.com/verte-zerg/fuelbook/internal/stats"
	"github.com/verte-zerg/fuelbook/internal/units"
)

const (
	fieldDate = iota
	fieldOdometer
	fieldVolume
	fieldCost
	fieldNote
	fieldPartial
	fieldCount
)

// SaveFunc persists a record built by the form.
type SaveFunc func(ctx context.Context, rec model.FillRecord) (model.FillRecord, error)

type savedMsg struct {
	rec model.FillRecord
}

type saveErrMsg struct {
	err error
}

// Model implements the Bubble Tea entry form.
type Model struct {
	vehicle    model.Vehicle
	metric     bool
	labels     units.Labels
	classifier fills.Classifier
	save       SaveFunc
	loc        *time.Location

	inputs  []textinput.Model
	focus   int
	partial bool
	// touched is set once the user flips the partial toggle; suggestions
	// never override it afterwards.
	touched   bool
	suggested bool

	lastCycle *stats.Cycle
	errMsg    string
	saving    bool
	saved     *model.FillRecord
	cancelled bool

	width  int
	height int
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Width(16)
	focusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	suggestStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5AA0D8"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Options configure a new form.
type Options struct {
	Vehicle    model.Vehicle
	History    []model.FillRecord
	Metric     bool
	Classifier model.ClassifierConfig
	Now        time.Time
	Save       SaveFunc
}

// NewModel constructs an entry form for a vehicle. History feeds the
// partial-fill suggestion and the footer.
func NewModel(opts Options) *Model {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	m := &Model{
		vehicle:    opts.Vehicle,
		metric:     opts.Metric,
		labels:     units.LabelsFor(opts.Vehicle.FuelType, opts.Metric),
		classifier: fills.NewClassifier(opts.History, fills.WithConfig(opts.Classifier)),
		save:       opts.Save,
		loc:        now.Location(),
	}

	m.inputs = make([]textinput.Model, fieldNote+1)
	for i := range m.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 64
		m.inputs[i] = in
	}
	m.inputs[fieldDate].SetValue(now.Format("2006-01-02 15:04"))
	m.inputs[fieldOdometer].Placeholder = "optional"
	m.inputs[fieldVolume].Placeholder = "0.00"
	m.inputs[fieldCost].Placeholder = "0.00"
	m.inputs[fieldNote].Placeholder = "optional"
	m.inputs[fieldNote].CharLimit = 256

	cycles := stats.Cycles(fills.GroupFills(opts.History), opts.Vehicle.BaselineOdometer, opts.Vehicle.FuelType, opts.Metric)
	for i := len(cycles) - 1; i >= 0; i-- {
		if cycles[i].Stats.Consumption != nil {
			c := cycles[i]
			m.lastCycle = &c
			break
		}
	}

	m.setFocus(fieldVolume)
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Saved returns the stored record once the form was submitted.
func (m *Model) Saved() (model.FillRecord, bool) {
	if m.saved == nil {
		return model.FillRecord{}, false
	}
	return *m.saved, true
}

// Cancelled reports whether the user left without saving.
func (m *Model) Cancelled() bool {
	return m.cancelled
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case savedMsg:
		m.saving = false
		m.saved = &msg.rec
		return m, tea.Quit
	case saveErrMsg:
		m.saving = false
		m.errMsg = msg.err.Error()
		return m, nil
	case tea.KeyMsg:
		if m.saving {
			return m, nil
		}
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyTab, tea.KeyDown:
			m.setFocus((m.focus + 1) % fieldCount)
			return m, nil
		case tea.KeyShiftTab, tea.KeyUp:
			m.setFocus((m.focus + fieldCount - 1) % fieldCount)
			return m, nil
		case tea.KeyCtrlS:
			return m, m.submit()
		case tea.KeyEnter:
			if m.focus == fieldCount-1 {
				return m, m.submit()
			}
			m.setFocus(m.focus + 1)
			return m, nil
		}
		if m.focus == fieldPartial {
			if msg.Type == tea.KeySpace || (msg.Type == tea.KeyRunes && strings.EqualFold(string(msg.Runes), "p")) {
				m.partial = !m.partial
				m.touched = true
				m.suggested = false
			}
			return m, nil
		}
	}

	if m.focus >= len(m.inputs) {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if m.focus == fieldVolume {
		m.applySuggestion()
	}
	return m, cmd
}

func (m *Model) setFocus(idx int) {
	m.focus = idx
	for i := range m.inputs {
		if i == idx {
			m.inputs[i].Focus()
			continue
		}
		m.inputs[i].Blur()
	}
}

// applySuggestion pre-checks the partial toggle from the typed volume until
// the user sets it explicitly.
func (m *Model) applySuggestion() {
	if m.touched {
		return
	}
	raw := strings.TrimSpace(m.inputs[fieldVolume].Value())
	if raw == "" {
		m.partial, m.suggested = false, false
		return
	}
	volume, err := importer.ParseNumber("volume", raw)
	if err != nil {
		return
	}
	partial, ok := m.classifier.Suggest(units.VolumeFromDisplay(volume, m.vehicle.FuelType, m.metric))
	if !ok {
		return
	}
	m.partial, m.suggested = partial, partial
}

// Record builds a fill from the current form values.
func (m *Model) Record() (model.FillRecord, error) {
	at, err := importer.ParseDate(strings.TrimSpace(m.inputs[fieldDate].Value()), m.loc)
	if err != nil {
		return model.FillRecord{}, err
	}
	volume, err := importer.ParseNumber("volume", strings.TrimSpace(m.inputs[fieldVolume].Value()))
	if err != nil {
		return model.FillRecord{}, err
	}
	rec := model.FillRecord{
		VehicleID: m.vehicle.ID,
		FilledAt:  at,
		Volume:    units.VolumeFromDisplay(volume, m.vehicle.FuelType, m.metric),
		Partial:   m.partial,
		Note:      strings.TrimSpace(m.inputs[fieldNote].Value()),
	}
	if raw := strings.TrimSpace(m.inputs[fieldCost].Value()); raw != "" {
		if rec.Cost, err = importer.ParseNumber("cost", raw); err != nil {
			return model.FillRecord{}, err
		}
	}
	if raw := strings.TrimSpace(m.inputs[fieldOdometer].Value()); raw != "" {
		odo, err := importer.ParseNumber("odometer", raw)
		if err != nil {
			return model.FillRecord{}, err
		}
		km, err := importer.OdometerKm("odometer", odo, m.metric)
		if err != nil {
			return model.FillRecord{}, err
		}
		rec.Odometer = model.Odo(km)
	}
	return rec, nil
}

func (m *Model) submit() tea.Cmd {
	rec, err := m.Record()
	if err != nil {
		m.errMsg = err.Error()
		return nil
	}
	m.errMsg = ""
	if m.save == nil {
		m.saved = &rec
		return tea.Quit
	}
	m.saving = true
	save := m.save
	return func() tea.Msg {
		stored, err := save(context.Background(), rec)
		if err != nil {
			slog.Error("save fill", "vehicle", rec.VehicleID, "err", err)
			return saveErrMsg{err: err}
		}
		return savedMsg{rec: stored}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("New fill · %s", m.vehicle.Name)))
	b.WriteString("\n\n")

	labels := []string{
		"Date",
		"Odometer (" + m.labels.Distance + ")",
		"Volume (" + m.labels.Volume + ")",
		"Cost",
		"Note",
	}
	for i, in := range m.inputs {
		label := labelStyle.Render(labels[i])
		if i == m.focus {
			label = focusStyle.Render(fmt.Sprintf("%-16s", labels[i]))
		}
		b.WriteString(label + " " + in.View() + "\n")
	}
	b.WriteString(m.renderPartial() + "\n\n")

	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg) + "\n")
	}
	if m.saving {
		b.WriteString(hintStyle.Render("Saving...") + "\n")
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	for _, line := range wrapWords("tab/shift+tab move · space toggles partial · enter on the toggle or ctrl+s saves · esc cancels", width) {
		b.WriteString(hintStyle.Render(line) + "\n")
	}
	if footer := m.renderFooter(); footer != "" {
		for _, line := range wrapWords(footer, width) {
			b.WriteString(footerStyle.Render(line) + "\n")
		}
	}
	return b.String()
}

func (m *Model) renderPartial() string {
	box := "[ ]"
	if m.partial {
		box = "[x]"
	}
	label := labelStyle.Render("Partial fill")
	if m.focus == fieldPartial {
		label = focusStyle.Render(fmt.Sprintf("%-16s", "Partial fill"))
	}
	out := label + " " + box
	if m.suggested {
		out += " " + suggestStyle.Render("(suggested: below the usual refill)")
	}
	return out
}

func (m *Model) renderFooter() string {
	var segments []string
	if ref, ok := m.classifier.ReferenceVolume(); ok {
		segments = append(segments, fmt.Sprintf("Avg refill %.2f %s", units.Volume(ref, m.vehicle.FuelType, m.metric), m.labels.Volume))
	} else {
		segments = append(segments, fmt.Sprintf("Partial suggestions after %d full fills (have %d)", m.classifier.Required(), m.classifier.Samples()))
	}
	if m.lastCycle != nil {
		segments = append(segments, fmt.Sprintf("Last cycle %.2f %s", *m.lastCycle.Stats.Consumption, m.labels.Consumption))
		if closing, ok := m.lastCycle.Group.ClosingEntry(); ok && closing.Odometer != nil {
			segments = append(segments, fmt.Sprintf("Last odometer %.0f %s", units.Distance(float64(*closing.Odometer), m.metric), m.labels.Distance))
		}
	}
	return strings.Join(segments, " · ")
}
