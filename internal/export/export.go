// Package export writes stats reports as XLSX workbooks and PDF documents.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/verte-zerg/fuelbook/internal/stats"
)

// Supported formats.
const (
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// Build renders rep in the given format.
func Build(rep stats.Report, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatXLSX:
		return BuildXLSX(rep)
	case FormatPDF:
		return BuildPDF(rep)
	}
	return nil, fmt.Errorf("unknown export format %q (use xlsx or pdf)", format)
}

// WriteFile renders rep and writes it to path, creating parent directories.
func WriteFile(path string, rep stats.Report, format string) error {
	data, err := Build(rep, format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// FileName suggests an export file name for rep.
func FileName(rep stats.Report, format string, now time.Time) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, rep.Vehicle.Name)
	if name == "" {
		name = "vehicle"
	}
	return fmt.Sprintf("fuelbook-%s-%s.%s", name, now.Format("20060102"), strings.ToLower(format))
}

// BuildXLSX renders a workbook with summary, cycles, fills and monthly sheets.
func BuildXLSX(rep stats.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close of the in-memory workbook.
			_ = cerr
		}
	}()

	const summarySheet = "summary"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	w := sheetWriter{f: f}

	w.sheet = summarySheet
	w.row([]any{"Vehicle", rep.Vehicle.Name})
	w.row([]any{"Fuel", string(rep.Vehicle.FuelType)})
	for _, line := range stats.SummaryLines(rep.Window, rep.Labels, rep.AvgRefill) {
		w.row([]any{line[0], line[1]})
	}

	w.newSheet("cycles")
	headers := stats.CycleHeaders(rep.Labels)
	w.row(toAny(append([]string{"Start", "End"}, headers[1:]...)))
	for _, c := range rep.History {
		closed := "open"
		if c.Group.Closed() {
			closed = "closed"
		}
		w.row([]any{
			c.Start().Format(stats.DateLayout),
			c.End().Format(stats.DateLayout),
			len(c.Group.Entries),
			closed,
			c.Stats.TotalVolume,
			c.Stats.TotalCost,
			optional(c.Stats.Distance),
			optional(c.Stats.Consumption),
		})
	}

	w.newSheet("fills")
	w.row([]any{"Date", "Odometer (km)", "Volume", "Cost", "Partial", "Note"})
	for _, rec := range rep.Records {
		var odo any
		if rec.Odometer != nil {
			odo = *rec.Odometer
		}
		w.row([]any{rec.FilledAt.Format(time.RFC3339), odo, rec.Volume, rec.Cost, rec.Partial, rec.Note})
	}

	w.newSheet("monthly")
	w.row([]any{"Month", "Fills", "Distance (" + rep.Labels.Distance + ")", "Fuel (" + rep.Labels.Volume + ")", "Cost", rep.Labels.Consumption})
	for _, m := range rep.Monthly {
		w.row([]any{m.Month.Format("2006-01"), m.Fills, optional(m.TotalDistance), m.TotalFuel, m.TotalCost, optional(m.AverageConsumption)})
	}
	if w.err != nil {
		return nil, w.err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sheetWriter appends rows and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	next  int
	err   error
}

func (w *sheetWriter) newSheet(name string) {
	if w.err != nil {
		return
	}
	if _, err := w.f.NewSheet(name); err != nil {
		w.err = err
		return
	}
	w.sheet = name
	w.next = 0
}

func (w *sheetWriter) row(values []any) {
	if w.err != nil {
		return
	}
	w.next++
	cell, err := excelize.CoordinatesToCellName(1, w.next)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(w.sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("sheet %s row %d: %w", w.sheet, w.next, err)
	}
}

// BuildPDF renders a one-document report with summary, cycles and months.
func BuildPDF(rep stats.Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "B", 14)
	pdf.AddPage()

	pdf.Cell(0, 8, tr("Fuel report: "+rep.Vehicle.Name))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	for _, line := range stats.SummaryLines(rep.Window, rep.Labels, rep.AvgRefill) {
		pdf.CellFormat(55, 6, tr(line[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(line[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	headers := stats.CycleHeaders(rep.Labels)
	widths := []float64{26, 14, 18, 30, 24, 34, 26}
	pdfTable(pdf, tr, "Tank cycles", headers, widths, stats.CycleRows(rep.History))

	monthHeaders := []string{"Month", "Fills", "Distance", "Fuel", "Cost", rep.Labels.Consumption}
	monthRows := make([][]string, 0, len(rep.Monthly))
	for _, m := range rep.Monthly {
		monthRows = append(monthRows, []string{
			m.Month.Format("2006-01"),
			fmt.Sprintf("%d", m.Fills),
			stats.FormatOptional(m.TotalDistance, "%.0f"),
			fmt.Sprintf("%.2f", m.TotalFuel),
			fmt.Sprintf("%.2f", m.TotalCost),
			stats.FormatOptional(m.AverageConsumption, "%.2f"),
		})
	}
	pdfTable(pdf, tr, "Monthly", monthHeaders, []float64{26, 14, 30, 30, 30, 30}, monthRows)

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pdfTable(pdf *gofpdf.Fpdf, tr func(string) string, title string, headers []string, widths []float64, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, title)
	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, tr(h), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		for i, cell := range row {
			align := "R"
			if i == 0 {
				align = "C"
			}
			pdf.CellFormat(widths[i], 6, tr(cell), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
