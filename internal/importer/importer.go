// Package importer loads fill histories from CSV files.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/fuelbook/internal/model"
	"github.com/verte-zerg/fuelbook/internal/units"
)

// Header lists the recognised columns. date and volume are required.
var Header = []string{"date", "odometer", "volume", "cost", "partial", "note"}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Options describe how CSV values map to stored records. Odometer and volume
// columns are read in the display system given by Metric.
type Options struct {
	VehicleID string
	Fuel      model.FuelType
	Metric    bool
	Location  *time.Location
}

// LoadFile reads a CSV file from path.
func LoadFile(path string, opts Options) ([]model.FillRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only import file.
			_ = cerr
		}
	}()
	return Read(file, opts)
}

// Read parses CSV rows into fill records. Lines starting with # are skipped.
// The first error aborts the import so a file is never half applied.
func Read(r io.Reader, opts Options) ([]model.FillRecord, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	head, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv is empty")
	}
	if err != nil {
		return nil, err
	}
	cols, err := columnIndex(head)
	if err != nil {
		return nil, err
	}

	var out []model.FillRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		rec, err := parseRow(row, cols, opts)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("csv has no fills")
	}
	return out, nil
}

func columnIndex(head []string) (map[string]int, error) {
	known := map[string]bool{}
	for _, h := range Header {
		known[h] = true
	}
	cols := map[string]int{}
	for i, h := range head {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if !known[name] {
			return nil, fmt.Errorf("unknown column %q (expected %s)", h, strings.Join(Header, ","))
		}
		if _, dup := cols[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		cols[name] = i
	}
	for _, req := range []string{"date", "volume"} {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("missing required column %q", req)
		}
	}
	return cols, nil
}

func parseRow(row []string, cols map[string]int, opts Options) (model.FillRecord, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rec := model.FillRecord{VehicleID: opts.VehicleID, Note: get("note")}

	at, err := ParseDate(get("date"), opts.Location)
	if err != nil {
		return model.FillRecord{}, err
	}
	rec.FilledAt = at

	volume, err := ParseNumber("volume", get("volume"))
	if err != nil {
		return model.FillRecord{}, err
	}
	rec.Volume = units.VolumeFromDisplay(volume, opts.Fuel, opts.Metric)

	if raw := get("cost"); raw != "" {
		if rec.Cost, err = ParseNumber("cost", raw); err != nil {
			return model.FillRecord{}, err
		}
	}

	if raw := get("odometer"); raw != "" {
		odo, err := ParseNumber("odometer", raw)
		if err != nil {
			return model.FillRecord{}, err
		}
		km, err := OdometerKm("odometer", odo, opts.Metric)
		if err != nil {
			return model.FillRecord{}, err
		}
		rec.Odometer = model.Odo(km)
	}

	if rec.Partial, err = ParseBool(get("partial")); err != nil {
		return model.FillRecord{}, err
	}
	return rec, nil
}

// ParseDate accepts RFC 3339 and the common date-time layouts. Values
// without a zone are read in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}

// ParseNumber parses a non-negative decimal. A comma is accepted as the
// decimal separator.
func ParseNumber(field, s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("%s is empty", field)
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s %q is not a number", field, s)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s %q is negative", field, s)
	}
	return v, nil
}

// OdometerKm converts a display odometer reading to stored whole kilometres.
func OdometerKm(field string, display float64, metric bool) (int64, error) {
	km := math.Round(units.DistanceToKm(display, metric))
	if math.IsNaN(km) || math.IsInf(km, 0) || km >= math.MaxInt64 {
		return 0, fmt.Errorf("%s %v is out of range", field, display)
	}
	if km < 0 {
		return 0, fmt.Errorf("%s %v is negative", field, display)
	}
	return int64(km), nil
}

// ParseBool parses the partial column.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "0", "n", "no", "false", "full":
		return false, nil
	case "1", "y", "yes", "true", "partial":
		return true, nil
	}
	return false, fmt.Errorf("partial %q is not a boolean", s)
}
