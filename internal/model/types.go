// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// FuelType identifies what a vehicle is refuelled with.
type FuelType string

// Supported fuel types.
const (
	FuelLiquid   FuelType = "liquid"
	FuelElectric FuelType = "electric"
	FuelHydrogen FuelType = "hydrogen"
)

// ParseFuelType maps user input to a FuelType.
func ParseFuelType(s string) (FuelType, error) {
	switch FuelType(strings.ToLower(strings.TrimSpace(s))) {
	case FuelLiquid, "":
		return FuelLiquid, nil
	case FuelElectric:
		return FuelElectric, nil
	case FuelHydrogen:
		return FuelHydrogen, nil
	}
	return "", fmt.Errorf("unknown fuel type %q (use liquid, electric or hydrogen)", s)
}

// Vehicle owns a fill history.
type Vehicle struct {
	ID       string
	Name     string
	FuelType FuelType
	// BaselineOdometer is the earliest known mileage in km. It anchors the
	// distance of the first tank cycle.
	BaselineOdometer *int64
	CreatedAt        time.Time
}

// FillRecord is one refuelling observation. Volume is stored in litres, kWh
// or kg depending on the vehicle fuel type; Odometer in km.
type FillRecord struct {
	ID        string
	VehicleID string
	FilledAt  time.Time
	Volume    float64
	Cost      float64
	Odometer  *int64
	Partial   bool
	Note      string
}

// Odo returns a pointer to v, for building records with a known odometer.
func Odo(v int64) *int64 {
	return &v
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	VehicleID   string
	Since       *time.Time
	Until       *time.Time
	Period      string
	Metric      bool
	CurveWindow int
}

// ClassifierConfig tunes partial-fill suggestions.
type ClassifierConfig struct {
	MinSamples   int
	PartialRatio float64
}
