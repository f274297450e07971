// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/fuelbook/internal/model"
	"github.com/verte-zerg/fuelbook/internal/stats"
	"github.com/verte-zerg/fuelbook/internal/store"
)

const (
	tabOverview = iota
	tabCycles
	tabMonthly
)

const (
	filterPeriod = iota
	filterSince
	filterUntil
	filterWindow
)

const (
	plotHeight = 10
	cardWidth  = 24
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Width(cardWidth).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	store *store.Store
	cfg   model.StatsConfig
	cls   model.ClassifierConfig

	report stats.Report
	errMsg string

	tabs        []string
	activeTab   int
	viewports   []viewport.Model
	cycleTable  table.Model
	cycleLayout tableLayout

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

type tableLayout struct {
	width    int
	height   int
	rowCount int
	colCount int
}

// NewModel constructs a stats UI model for the vehicle named in cfg.
func NewModel(st *store.Store, cfg model.StatsConfig, cls model.ClassifierConfig) *Model {
	if cfg.CurveWindow < 1 {
		cfg.CurveWindow = 1
	}
	m := &Model{
		store: st,
		cfg:   cfg,
		cls:   cls,
		tabs:  []string{"Overview", "Cycles", "Monthly"},
	}
	m.initInputs()
	m.cycleTable = newCycleTable()
	m.initViewports()
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
			m.renderTabContents()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
			m.renderTabContents()
			return m, nil
		case "r":
			m.refreshReport()
			m.updateLayout()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			if m.activeTab == tabCycles {
				m.cycleTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabCycles {
				m.cycleTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabCycles {
				var cmd tea.Cmd
				m.cycleTable, cmd = m.cycleTable.Update(msg)
				return m, cmd
			}
			var cmd tea.Cmd
			m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Period (" + strings.Join(stats.Periods, "/") + "): "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Until (YYYY-MM-DD, exclusive): "),
		newFilterInput("Curve window: "),
	}
	m.setInputsFromConfig()
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	if len(m.filterInputs) == 0 {
		return
	}
	m.filterInputs[filterPeriod].SetValue(strings.TrimSpace(m.cfg.Period))
	m.filterInputs[filterSince].SetValue(formatDate(m.cfg.Since))
	m.filterInputs[filterUntil].SetValue(formatDate(m.cfg.Until))
	m.filterInputs[filterWindow].SetValue(strconv.Itoa(m.cfg.CurveWindow))
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.applyCycleTable(m.width, vpHeight, false)
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabCycles {
		m.cycleTable.Focus()
	} else {
		m.cycleTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	name := m.report.Vehicle.Name
	if name == "" {
		name = m.cfg.VehicleID
	}
	period := m.cfg.Period
	if period == "" {
		period = stats.PeriodAll
	}
	summary := fmt.Sprintf("Vehicle: %s  period=%s  window=%s  curve=%d",
		name, period, m.report.Window.Window, m.cfg.CurveWindow)
	summary = truncateLine(summary, m.width)
	return headerStyle.Render(summary)
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Reload: r  Settings: /  Quit: q"
	return headerStyle.Render(truncateLine(help, m.width))
}

func (m *Model) renderFilterHelp() string {
	return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel  quit: ctrl+c")
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return m.renderFilterHelp()
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabCycles {
		if len(m.report.Window.Cycles) == 0 {
			return fitLines("No cycles found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.cycleTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.store, m.cfg, m.cls)
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	m.errMsg = ""
	m.report = report
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.applyCycleTable(width, bodyHeight, true)
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report, m.cfg.CurveWindow, width))
	m.viewports[tabMonthly].SetContent(renderMonthly(m.report))
}

func renderOverview(rep stats.Report, window, width int) string {
	if rep.Window.Fills == 0 {
		return "No fills found."
	}
	summary := renderSummaryCards(rep, width)
	curves := renderCurves(rep, window, width)
	if curves == "" {
		return summary
	}
	return strings.TrimRight(summary+"\n\n"+curves, "\n")
}

func renderSummaryCards(rep stats.Report, width int) string {
	lines := stats.SummaryLines(rep.Window, rep.Labels, rep.AvgRefill)
	cards := make([]string, 0, len(lines))
	for _, l := range lines {
		// The window is already shown in the header.
		if l[0] == "Window" {
			continue
		}
		cards = append(cards, metricCard(l[0], l[1]))
	}
	perRow := width / (cardWidth + 2)
	if perRow < 1 {
		perRow = 1
	}
	rows := make([]string, 0, len(cards)/perRow+1)
	for start := 0; start < len(cards); start += perRow {
		end := minInt(start+perRow, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[start:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderCurves(rep stats.Report, window, width int) string {
	var buf bytes.Buffer
	if err := stats.RenderCurvesWithSize(&buf, rep.Consumption, rep.UnitPrice, rep.Labels, window, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render curves: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderMonthly(rep stats.Report) string {
	if len(rep.Monthly) == 0 {
		return "No fills found."
	}
	headers := []string{
		"Month",
		"Fills",
		"Distance (" + rep.Labels.Distance + ")",
		"Fuel (" + rep.Labels.Volume + ")",
		"Cost",
		rep.Labels.Consumption,
	}
	rows := make([][]string, 0, len(rep.Monthly))
	trend := make([]float64, 0, len(rep.Monthly))
	for i := len(rep.Monthly) - 1; i >= 0; i-- {
		ms := rep.Monthly[i]
		rows = append(rows, []string{
			ms.Month.Format("2006-01"),
			strconv.Itoa(ms.Fills),
			stats.FormatOptional(ms.TotalDistance, "%.0f"),
			fmt.Sprintf("%.2f", ms.FuelPurchased),
			fmt.Sprintf("%.2f", ms.TotalCost),
			stats.FormatOptional(ms.AverageConsumption, "%.2f"),
		})
	}
	for _, ms := range rep.Monthly {
		if ms.AverageConsumption != nil {
			trend = append(trend, *ms.AverageConsumption)
		}
	}
	lines := stats.FormatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true})
	out := strings.Join(lines, "\n")
	if len(trend) > 1 {
		out = headerStyle.Render("Trend "+stats.Sparkline(trend)) + "\n\n" + out
	}
	return out
}

func newCycleTable() table.Model {
	t := table.New(table.WithHeight(1))
	t.SetStyles(cycleTableStyles())
	return t
}

func (m *Model) applyCycleTable(width, height int, force bool) {
	cols, rows := buildCycleTableData(m.report, width)
	viewportHeight := maxInt(1, height-1)
	if !force &&
		m.cycleLayout.width == width &&
		m.cycleLayout.height == viewportHeight &&
		m.cycleLayout.rowCount == len(rows) &&
		m.cycleLayout.colCount == len(cols) {
		return
	}
	// Rows must be cleared before shrinking the column set.
	m.cycleTable.SetRows(nil)
	m.cycleTable.SetColumns(cols)
	m.cycleTable.SetRows(rows)
	m.cycleLayout.rowCount = len(rows)
	m.cycleLayout.colCount = len(cols)
	m.cycleLayout.width = width
	m.cycleLayout.height = viewportHeight
	m.cycleTable.SetWidth(width)
	m.cycleTable.SetHeight(viewportHeight)
	if adjusted := m.adjustCycleTableHeight(height); adjusted != viewportHeight {
		m.cycleLayout.height = adjusted
		m.cycleTable.SetHeight(adjusted)
	}
}

func cycleTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) adjustCycleTableHeight(bodyHeight int) int {
	target := maxInt(1, bodyHeight)
	height := m.cycleTable.Height()
	viewHeight := lipgloss.Height(m.cycleTable.View())
	if viewHeight == target {
		return height
	}
	height += target - viewHeight
	if height < 1 {
		height = 1
	}
	m.cycleTable.SetHeight(height)
	viewHeight = lipgloss.Height(m.cycleTable.View())
	if viewHeight == target {
		return height
	}
	height += target - viewHeight
	if height < 1 {
		height = 1
	}
	return height
}

// buildCycleTableData sizes each column to its widest cell. The note column
// takes whatever width is left.
func buildCycleTableData(rep stats.Report, width int) ([]table.Column, []table.Row) {
	headers := stats.CycleHeaders(rep.Labels)
	headers = append(headers, "Note")
	cycleRows := stats.CycleRows(rep.Window.Cycles)

	rows := make([]table.Row, 0, len(cycleRows))
	for i, r := range cycleRows {
		c := rep.Window.Cycles[len(rep.Window.Cycles)-1-i]
		rows = append(rows, append(table.Row(r), cycleNote(c)))
	}

	columns := make([]table.Column, len(headers))
	used := 0
	for i, h := range headers {
		w := runewidth.StringWidth(h)
		for _, r := range rows {
			if cw := runewidth.StringWidth(r[i]); cw > w {
				w = cw
			}
		}
		columns[i] = table.Column{Title: h, Width: w}
		if i < len(headers)-1 {
			used += w + 1
		}
	}
	last := len(columns) - 1
	columns[last].Width = maxInt(runewidth.StringWidth(headers[last]), minInt(columns[last].Width, width-used-1))
	return columns, rows
}

func cycleNote(c stats.Cycle) string {
	notes := make([]string, 0, len(c.Group.Entries))
	for _, e := range c.Group.Entries {
		if n := strings.TrimSpace(e.Note); n != "" {
			notes = append(notes, n)
		}
	}
	return strings.Join(notes, "; ")
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	period := strings.ToLower(strings.TrimSpace(m.filterInputs[filterPeriod].Value()))
	if _, err := stats.PeriodWindow(period, time.Now()); err != nil {
		return err
	}
	since, err := parseDateInput("since", m.filterInputs[filterSince].Value())
	if err != nil {
		return err
	}
	until, err := parseDateInput("until", m.filterInputs[filterUntil].Value())
	if err != nil {
		return err
	}

	windowInput := strings.TrimSpace(m.filterInputs[filterWindow].Value())
	window := 1
	if windowInput != "" {
		parsed, err := strconv.Atoi(windowInput)
		if err != nil {
			return fmt.Errorf("invalid curve window (use integer)")
		}
		if parsed < 1 {
			return fmt.Errorf("invalid curve window (use integer >= 1)")
		}
		window = parsed
	}

	cfg := m.cfg
	cfg.Period = period
	cfg.Since = since
	cfg.Until = until
	cfg.CurveWindow = window
	if _, err := stats.ResolveWindow(cfg, time.Now()); err != nil {
		return err
	}
	m.cfg = cfg
	return nil
}

func parseDateInput(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(stats.DateLayout, raw, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date (expected YYYY-MM-DD)", field)
	}
	return &parsed, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(stats.DateLayout)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	if n%5 == 0 {
		return n + 5
	}
	return ((n / 5) + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
