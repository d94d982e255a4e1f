package platform

import "math"

// quantity is the physical kind of a reading, used to pick its unit.
type quantity int

const (
	quantityNone quantity = iota
	quantityTemperature
	quantitySpeed
	quantityPressure
	quantityDistance
	quantityPrecipRate
	quantityAccumulation
	quantityPercent
	quantityBearing
	quantityOzone
	quantityText
	quantityTimestamp
)

// unitSystem names the unit a quantity is shown in for one Pirate Weather
// unit system. Forecasts arrive in SI and are converted on read.
type unitSystem struct {
	temperature  string
	speed        string
	pressure     string
	distance     string
	precipRate   string
	accumulation string
}

var unitSystems = map[string]unitSystem{
	"si": {"°C", "m/s", "hPa", "km", "mm/h", "cm"},
	"ca": {"°C", "km/h", "hPa", "km", "mm/h", "cm"},
	"uk": {"°C", "mph", "hPa", "mi", "mm/h", "cm"},
	"us": {"°F", "mph", "mbar", "mi", "in/h", "in"},
}

func systemFor(units string) unitSystem {
	if s, ok := unitSystems[units]; ok {
		return s
	}
	return unitSystems["si"]
}

// unit returns the unit of measurement for q, or "" for unitless values.
func (s unitSystem) unit(q quantity) string {
	switch q {
	case quantityTemperature:
		return s.temperature
	case quantitySpeed:
		return s.speed
	case quantityPressure:
		return s.pressure
	case quantityDistance:
		return s.distance
	case quantityPrecipRate:
		return s.precipRate
	case quantityAccumulation:
		return s.accumulation
	case quantityPercent:
		return "%"
	case quantityBearing:
		return "°"
	case quantityOzone:
		return "DU"
	}
	return ""
}

// convert turns an SI value of kind q into the unit system s.
func (s unitSystem) convert(q quantity, v float64) float64 {
	switch q {
	case quantityTemperature:
		if s.temperature == "°F" {
			return v*9/5 + 32
		}
	case quantitySpeed:
		switch s.speed {
		case "km/h":
			return v * 3.6
		case "mph":
			return v * 2.236936
		}
	case quantityDistance:
		if s.distance == "mi" {
			return v * 0.621371
		}
	case quantityPrecipRate:
		if s.precipRate == "in/h" {
			return v / 25.4
		}
	case quantityAccumulation:
		if s.accumulation == "in" {
			return v / 2.54
		}
	case quantityPercent:
		return v * 100
	}
	return v
}

// roundValue rounds to a whole number when round is set, else to two decimals.
func roundValue(v float64, round bool) float64 {
	if round {
		return math.Round(v)
	}
	return math.Round(v*100) / 100
}
