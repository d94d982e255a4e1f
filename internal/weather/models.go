package weather

import (
	"strconv"
	"strings"
	"time"
)

// Location is a geographic point a coordinator polls for.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Key returns the cache key shared by every entry polling this location.
// Coordinates keep their full precision, so 10 and 10.0001 are distinct.
func (l Location) Key() string {
	return "pw-" + formatCoord(l.Latitude) + "-" + formatCoord(l.Longitude)
}

// formatCoord renders v in its shortest round-trip form, keeping a ".0"
// suffix on integral values.
func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// DataPoint is one set of observations in a forecast, always in SI units.
// Which fields are populated depends on the block it belongs to.
type DataPoint struct {
	Time                    int64   `json:"time"`
	Summary                 string  `json:"summary,omitempty"`
	Icon                    string  `json:"icon,omitempty"`
	NearestStormDistance    float64 `json:"nearestStormDistance,omitempty"`
	NearestStormBearing     float64 `json:"nearestStormBearing,omitempty"`
	PrecipIntensity         float64 `json:"precipIntensity"`
	PrecipIntensityMax      float64 `json:"precipIntensityMax,omitempty"`
	PrecipAccumulation      float64 `json:"precipAccumulation,omitempty"`
	PrecipProbability       float64 `json:"precipProbability"`
	PrecipType              string  `json:"precipType,omitempty"`
	Temperature             float64 `json:"temperature"`
	ApparentTemperature     float64 `json:"apparentTemperature"`
	TemperatureHigh         float64 `json:"temperatureHigh,omitempty"`
	TemperatureLow          float64 `json:"temperatureLow,omitempty"`
	ApparentTemperatureHigh float64 `json:"apparentTemperatureHigh,omitempty"`
	ApparentTemperatureLow  float64 `json:"apparentTemperatureLow,omitempty"`
	DewPoint                float64 `json:"dewPoint"`
	Humidity                float64 `json:"humidity"`
	Pressure                float64 `json:"pressure"`
	WindSpeed               float64 `json:"windSpeed"`
	WindGust                float64 `json:"windGust"`
	WindBearing             float64 `json:"windBearing"`
	CloudCover              float64 `json:"cloudCover"`
	UVIndex                 float64 `json:"uvIndex"`
	Visibility              float64 `json:"visibility"`
	Ozone                   float64 `json:"ozone"`
	SunriseTime             int64   `json:"sunriseTime,omitempty"`
	SunsetTime              int64   `json:"sunsetTime,omitempty"`
	MoonPhase               float64 `json:"moonPhase,omitempty"`
}

// At returns the point's timestamp in UTC.
func (d DataPoint) At() time.Time {
	return time.Unix(d.Time, 0).UTC()
}

// DataBlock is a summarised series of data points.
type DataBlock struct {
	Summary string      `json:"summary,omitempty"`
	Icon    string      `json:"icon,omitempty"`
	Data    []DataPoint `json:"data"`
}

// Alert is a severe weather warning issued for the location.
type Alert struct {
	Title       string   `json:"title"`
	Regions     []string `json:"regions,omitempty"`
	Severity    string   `json:"severity"`
	Time        int64    `json:"time"`
	Expires     int64    `json:"expires"`
	Description string   `json:"description"`
	URI         string   `json:"uri"`
}

// Forecast is the full result of one refresh.
type Forecast struct {
	Location  Location  `json:"location"`
	Timezone  string    `json:"timezone"`
	Currently DataPoint `json:"currently"`
	Hourly    DataBlock `json:"hourly"`
	Daily     DataBlock `json:"daily"`
	Alerts    []Alert   `json:"alerts,omitempty"`
	Units     string    `json:"units"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Snapshot is the condensed current conditions kept in history.
type Snapshot struct {
	Location        Location  `json:"location"`
	Timestamp       time.Time `json:"timestamp"` // always UTC
	Summary         string    `json:"summary"`
	Icon            string    `json:"icon"`
	Temperature     float64   `json:"temperatureC"`
	Humidity        float64   `json:"humidity"`
	WindSpeed       float64   `json:"windSpeedMs"`
	Pressure        float64   `json:"pressureHpa"`
	PrecipIntensity float64   `json:"precipIntensityMmH"`
}

// SnapshotOf condenses the current conditions of f.
func SnapshotOf(f Forecast) Snapshot {
	ts := f.Currently.At()
	if f.Currently.Time == 0 {
		ts = f.FetchedAt.UTC()
	}
	return Snapshot{
		Location:        f.Location,
		Timestamp:       ts,
		Summary:         f.Currently.Summary,
		Icon:            f.Currently.Icon,
		Temperature:     f.Currently.Temperature,
		Humidity:        f.Currently.Humidity,
		WindSpeed:       f.Currently.WindSpeed,
		Pressure:        f.Currently.Pressure,
		PrecipIntensity: f.Currently.PrecipIntensity,
	}
}
