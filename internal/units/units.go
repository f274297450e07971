// Package units converts distances, volumes and prices between the metric
// storage units and the display system, per fuel type.
package units

import (
	"math"

	"github.com/verte-zerg/fuelbook/internal/model"
)

const (
	kmPerMile      = 1.609344
	litresPerGalUS = 3.785411784
	per100         = 100.0
)

// Labels holds unit strings for the presentation layer.
type Labels struct {
	Distance    string
	Volume      string
	Consumption string
}

// Distance converts km to the display system.
func Distance(km float64, metric bool) float64 {
	if metric {
		return km
	}
	return km / kmPerMile
}

// DistanceToKm converts a display distance back to km.
func DistanceToKm(d float64, metric bool) float64 {
	if metric {
		return d
	}
	return d * kmPerMile
}

// Volume converts a stored volume to the display system. Only liquid fuel
// changes unit; kWh and kg are the same everywhere.
func Volume(v float64, fuel model.FuelType, metric bool) float64 {
	if metric || fuel != model.FuelLiquid {
		return v
	}
	return v / litresPerGalUS
}

// VolumeFromDisplay converts a display volume back to the storage unit.
func VolumeFromDisplay(v float64, fuel model.FuelType, metric bool) float64 {
	if metric || fuel != model.FuelLiquid {
		return v
	}
	return v * litresPerGalUS
}

// UnitPrice converts a price per stored unit into a price per display unit.
func UnitPrice(price float64, fuel model.FuelType, metric bool) float64 {
	if metric || fuel != model.FuelLiquid {
		return price
	}
	return price * litresPerGalUS
}

// Consumption computes the consumption rate in display units from a distance
// in km and a volume in the storage unit. Liquid fuels report distance per
// volume (km/L, mpg); electric and hydrogen report energy per 100 distance
// units. ok is false whenever either input is not a positive finite number.
func Consumption(km, volume float64, fuel model.FuelType, metric bool) (float64, bool) {
	if !(km > 0 && volume > 0) || math.IsInf(km, 0) || math.IsInf(volume, 0) {
		return 0, false
	}
	distance := Distance(km, metric)
	volume = Volume(volume, fuel, metric)
	switch fuel {
	case model.FuelElectric, model.FuelHydrogen:
		return volume / distance * per100, true
	default:
		return distance / volume, true
	}
}

// LowerIsBetter reports whether a smaller consumption value means a more
// efficient cycle for the fuel type.
func LowerIsBetter(fuel model.FuelType) bool {
	return fuel == model.FuelElectric || fuel == model.FuelHydrogen
}

// LabelsFor returns unit strings for the fuel type and system.
func LabelsFor(fuel model.FuelType, metric bool) Labels {
	dist := "km"
	if !metric {
		dist = "mi"
	}
	switch fuel {
	case model.FuelElectric:
		return Labels{Distance: dist, Volume: "kWh", Consumption: "kWh/100" + dist}
	case model.FuelHydrogen:
		return Labels{Distance: dist, Volume: "kg", Consumption: "kg/100" + dist}
	}
	if metric {
		return Labels{Distance: dist, Volume: "L", Consumption: "km/L"}
	}
	return Labels{Distance: dist, Volume: "gal", Consumption: "mpg"}
}
