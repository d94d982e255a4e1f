package platform

import (
	"context"
	"time"

	"github.com/i474232898/pirateweather/internal/entry"
	"github.com/i474232898/pirateweather/internal/host"
	"github.com/i474232898/pirateweather/internal/integration"
	"github.com/i474232898/pirateweather/internal/registry"
	"github.com/i474232898/pirateweather/internal/weather"
)

// WeatherPlatform creates one weather entity per entry.
type WeatherPlatform struct {
	registry *registry.Registry
}

func NewWeatherPlatform(reg *registry.Registry) *WeatherPlatform {
	return &WeatherPlatform{registry: reg}
}

func (p *WeatherPlatform) SetupEntry(_ context.Context, e *entry.Entry) ([]host.Entity, error) {
	rt, err := p.registry.Runtime(e.ID)
	if err != nil {
		return nil, err
	}
	return []host.Entity{&WeatherEntity{
		entryID: e.ID,
		name:    rt.Settings.Name,
		mode:    rt.Settings.Mode,
		units:   systemFor(rt.Settings.Units),
		round:   rt.Settings.Round,
		coord:   rt.Coordinator,
	}}, nil
}

// ForecastItem is one entry of the weather entity's forecast attribute.
type ForecastItem struct {
	Datetime                 string   `json:"datetime"`
	Condition                string   `json:"condition,omitempty"`
	Temperature              float64  `json:"temperature"`
	TempLow                  *float64 `json:"templow,omitempty"`
	Precipitation            float64  `json:"precipitation"`
	PrecipitationProbability float64  `json:"precipitation_probability"`
	WindSpeed                float64  `json:"wind_speed"`
	WindBearing              float64  `json:"wind_bearing"`
	Humidity                 float64  `json:"humidity"`
}

// WeatherEntity summarises current conditions and the forecast for an entry.
type WeatherEntity struct {
	entryID string
	name    string
	mode    string
	units   unitSystem
	round   bool
	coord   *weather.Coordinator
}

func (w *WeatherEntity) UniqueID() string { return w.entryID + "-weather" }

func (w *WeatherEntity) Name() string { return w.name }

func (w *WeatherEntity) Available() bool { return w.coord.LastUpdateSuccess() }

func (w *WeatherEntity) State() any {
	data, err := w.coord.Data()
	if err != nil {
		return nil
	}
	if c := hostCondition(data.Currently.Icon); c != "" {
		return c
	}
	return nil
}

func (w *WeatherEntity) value(q quantity, v float64) float64 {
	return roundValue(w.units.convert(q, v), w.round)
}

// precipitation converts millimetres to the unit system's amount unit.
func (w *WeatherEntity) precipitation(mm float64) float64 {
	if w.units.precipRate == "in/h" {
		mm /= 25.4
	}
	return roundValue(mm, false)
}

func (w *WeatherEntity) precipitationUnit() string {
	if w.units.precipRate == "in/h" {
		return "in"
	}
	return "mm"
}

func (w *WeatherEntity) Attributes() map[string]any {
	attrs := map[string]any{
		"attribution":        integration.Attribution,
		"friendly_name":      w.name,
		"temperature_unit":   w.units.temperature,
		"pressure_unit":      w.units.pressure,
		"wind_speed_unit":    w.units.speed,
		"visibility_unit":    w.units.distance,
		"precipitation_unit": w.precipitationUnit(),
	}

	data, err := w.coord.Data()
	if err != nil {
		return attrs
	}

	c := data.Currently
	attrs["temperature"] = w.value(quantityTemperature, c.Temperature)
	attrs["apparent_temperature"] = w.value(quantityTemperature, c.ApparentTemperature)
	attrs["dew_point"] = w.value(quantityTemperature, c.DewPoint)
	attrs["humidity"] = w.value(quantityPercent, c.Humidity)
	attrs["pressure"] = w.value(quantityPressure, c.Pressure)
	attrs["wind_speed"] = w.value(quantitySpeed, c.WindSpeed)
	attrs["wind_gust_speed"] = w.value(quantitySpeed, c.WindGust)
	attrs["wind_bearing"] = c.WindBearing
	attrs["visibility"] = w.value(quantityDistance, c.Visibility)
	attrs["cloud_coverage"] = w.value(quantityPercent, c.CloudCover)
	attrs["uv_index"] = c.UVIndex
	attrs["ozone"] = c.Ozone
	attrs["forecast"] = w.Forecast(data)
	if len(data.Alerts) > 0 {
		attrs["alerts"] = data.Alerts
	}
	return attrs
}

// Forecast builds the daily or hourly forecast, depending on the entry's mode.
func (w *WeatherEntity) Forecast(data weather.Forecast) []ForecastItem {
	points := data.Daily.Data
	if w.mode == "hourly" {
		points = data.Hourly.Data
	}

	items := make([]ForecastItem, 0, len(points))
	for _, d := range points {
		item := ForecastItem{
			Datetime:                 d.At().Format(time.RFC3339),
			Condition:                hostCondition(d.Icon),
			PrecipitationProbability: w.value(quantityPercent, d.PrecipProbability),
			WindSpeed:                w.value(quantitySpeed, d.WindSpeed),
			WindBearing:              d.WindBearing,
			Humidity:                 w.value(quantityPercent, d.Humidity),
		}
		if w.mode == "hourly" {
			item.Temperature = w.value(quantityTemperature, d.Temperature)
			item.Precipitation = w.precipitation(d.PrecipIntensity)
		} else {
			item.Temperature = w.value(quantityTemperature, d.TemperatureHigh)
			low := w.value(quantityTemperature, d.TemperatureLow)
			item.TempLow = &low
			// Daily accumulation is reported in centimetres.
			item.Precipitation = w.precipitation(d.PrecipAccumulation * 10)
		}
		items = append(items, item)
	}
	return items
}

func (w *WeatherEntity) Subscribe(fn func()) func() {
	return w.coord.AddListener(fn)
}
