package platform

import (
	"time"

	"github.com/i474232898/pirateweather/internal/weather"
)

// block identifies which part of a forecast a reading comes from.
type block int

const (
	blockCurrently block = 1 << iota
	blockHourly
	blockDaily
)

// condition describes one monitorable reading.
type condition struct {
	name     string
	icon     string
	quantity quantity
	blocks   block
	value    func(d weather.DataPoint) any
}

func number(f func(d weather.DataPoint) float64) func(d weather.DataPoint) any {
	return func(d weather.DataPoint) any { return f(d) }
}

func timestamp(f func(d weather.DataPoint) int64) func(d weather.DataPoint) any {
	return func(d weather.DataPoint) any {
		if ts := f(d); ts != 0 {
			return time.Unix(ts, 0).UTC().Format(time.RFC3339)
		}
		return nil
	}
}

const allBlocks = blockCurrently | blockHourly | blockDaily

// conditions lists the readings a sensor can monitor, keyed by the value
// stored in monitored_conditions.
var conditions = map[string]condition{
	"summary": {"Summary", "mdi:weather-partly-cloudy", quantityText, allBlocks,
		func(d weather.DataPoint) any { return d.Summary }},
	"icon": {"Icon", "mdi:weather-partly-cloudy", quantityText, allBlocks,
		func(d weather.DataPoint) any { return d.Icon }},
	"nearest_storm_distance": {"Nearest Storm Distance", "mdi:weather-lightning", quantityDistance, blockCurrently,
		number(func(d weather.DataPoint) float64 { return d.NearestStormDistance })},
	"nearest_storm_bearing": {"Nearest Storm Bearing", "mdi:weather-lightning", quantityBearing, blockCurrently,
		number(func(d weather.DataPoint) float64 { return d.NearestStormBearing })},
	"precip_type": {"Precip", "mdi:weather-pouring", quantityText, allBlocks,
		func(d weather.DataPoint) any { return d.PrecipType }},
	"precip_intensity": {"Precip Intensity", "mdi:weather-rainy", quantityPrecipRate, allBlocks,
		number(func(d weather.DataPoint) float64 { return d.PrecipIntensity })},
	"precip_probability": {"Precip Probability", "mdi:water-percent", quantityPercent, allBlocks,
		number(func(d weather.DataPoint) float64 { return d.PrecipProbability })},
	"precip_accumulation": {"Precip Accumulation", "mdi:weather-snowy", quantityAccumulation, blockHourly | blockDaily,
		number(func(d weather.DataPoint) float64 { return d.PrecipAccumulation })},
	"temperature": {"Temperature", "mdi:thermometer", quantityTemperature, blockCurrently | blockHourly,
		number(func(d weather.DataPoint) float64 { return d.Temperature })},
	"apparent_temperature": {"Apparent Temperature", "mdi:thermometer", quantityTemperature, blockCurrently | blockHourly,
		number(func(d weather.DataPoint) float64 { return d.ApparentTemperature })},
	"dew_point": {"Dew Point", "mdi:thermometer", quantityTemperature, allBlocks,
		number(func(d weather.DataPoint) float64 { return d.DewPoint })},
	"wind_speed": {"Wind Speed", "mdi:weather-windy", quantitySpeed, allBlocks,
		number(func(d weather.DataPoint) float64 { return d.WindSpeed })},
	"wind_gust": {"Wind Gust", "mdi:weather-windy-variant", quantitySpeed, allBlocks,
		number(func(d weather.DataPoint) float64 { return d.WindGust })},
	"wind_bearing": {"Wind Bearing", "mdi:compass", quantityBearing, allBlocks,
		number(func(d weather.DataPoint) float64 { return d.WindBearing })},
	"cloud_cover": {"Cloud Coverage", "mdi:weather-partly-cloudy", quantityPercent, allBlocks,
		number(func(d weather.DataPoint) float64 { return d.CloudCover })},
	"humidity": {"Humidity", "mdi:water-percent", quantityPercent, allBlocks,
		number(func(d weather.DataPoint) float64 { return d.Humidity })},
	"pressure": {"Pressure", "mdi:gauge", quantityPressure, allBlocks,
		number(func(d weather.DataPoint) float64 { return d.Pressure })},
	"visibility": {"Visibility", "mdi:eye", quantityDistance, allBlocks,
		number(func(d weather.DataPoint) float64 { return d.Visibility })},
	"ozone": {"Ozone", "mdi:eye", quantityOzone, allBlocks,
		number(func(d weather.DataPoint) float64 { return d.Ozone })},
	"uv_index": {"UV Index", "mdi:weather-sunny", quantityNone, allBlocks,
		number(func(d weather.DataPoint) float64 { return d.UVIndex })},
	"temperature_high": {"Daytime High Temperature", "mdi:thermometer", quantityTemperature, blockDaily,
		number(func(d weather.DataPoint) float64 { return d.TemperatureHigh })},
	"temperature_low": {"Overnight Low Temperature", "mdi:thermometer", quantityTemperature, blockDaily,
		number(func(d weather.DataPoint) float64 { return d.TemperatureLow })},
	"apparent_temperature_high": {"Daytime High Apparent Temperature", "mdi:thermometer", quantityTemperature, blockDaily,
		number(func(d weather.DataPoint) float64 { return d.ApparentTemperatureHigh })},
	"apparent_temperature_low": {"Overnight Low Apparent Temperature", "mdi:thermometer", quantityTemperature, blockDaily,
		number(func(d weather.DataPoint) float64 { return d.ApparentTemperatureLow })},
	"precip_intensity_max": {"Daily Max Precip Intensity", "mdi:thermometer", quantityPrecipRate, blockDaily,
		number(func(d weather.DataPoint) float64 { return d.PrecipIntensityMax })},
	"sunrise_time": {"Sunrise", "mdi:white-balance-sunny", quantityTimestamp, blockDaily,
		timestamp(func(d weather.DataPoint) int64 { return d.SunriseTime })},
	"sunset_time": {"Sunset", "mdi:weather-night", quantityTimestamp, blockDaily,
		timestamp(func(d weather.DataPoint) int64 { return d.SunsetTime })},
	"moon_phase": {"Moon Phase", "mdi:weather-night", quantityNone, blockDaily,
		number(func(d weather.DataPoint) float64 { return d.MoonPhase })},
}

// hostConditions maps Pirate Weather icons to host weather conditions.
var hostConditions = map[string]string{
	"clear-day":           "sunny",
	"clear-night":         "clear-night",
	"rain":                "rainy",
	"snow":                "snowy",
	"sleet":               "snowy-rainy",
	"wind":                "windy",
	"fog":                 "fog",
	"cloudy":              "cloudy",
	"partly-cloudy-day":   "partlycloudy",
	"partly-cloudy-night": "partlycloudy",
	"hail":                "hail",
	"thunderstorm":        "lightning",
	"tornado":             "exceptional",
}

// hostCondition returns the host condition for icon, or "" when unknown.
func hostCondition(icon string) string {
	return hostConditions[icon]
}
