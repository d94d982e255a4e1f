// Package entry models the config entries the host stores for this
// integration and resolves them into typed settings.
package entry

import (
	"context"
	"strings"
)

// Keys recognised in an entry's data and options maps.
const (
	KeyName                = "name"
	KeyAPIKey              = "api_key"
	KeyLatitude            = "latitude"
	KeyLongitude           = "longitude"
	KeyMode                = "mode"
	KeyLanguage            = "language"
	KeyMonitoredConditions = "monitored_conditions"
	KeyUnits               = "units"
	KeyForecastDays        = "forecast"
	KeyForecastHours       = "hourly_forecast"
	KeyPlatform            = "pw_platform"
	KeyRound               = "pw_round"
	KeyScanInterval        = "scan_interval"
)

// Platform identifies a sub-platform the host can set up for an entry.
type Platform string

const (
	PlatformSensor  Platform = "sensor"
	PlatformWeather Platform = "weather"
)

// Markers stored in the pw_platform selector.
const (
	MarkerSensor  = "Sensor"
	MarkerWeather = "Weather Entity"
)

// Entry is one configured instance of the integration.
// Data holds the values captured when the entry was created; Options holds
// the values the user changed afterwards.
type Entry struct {
	ID      string         `json:"entry_id"`
	Title   string         `json:"title"`
	Data    map[string]any `json:"data"`
	Options map[string]any `json:"options"`
}

// Value returns key from the entry's options when the options map is
// non-empty, otherwise from its data map.
func Value(e *Entry, key string) (any, bool) {
	if len(e.Options) > 0 {
		v, ok := e.Options[key]
		return v, ok
	}
	v, ok := e.Data[key]
	return v, ok
}

// PlatformSelector is the resolved pw_platform value.
type PlatformSelector []string

// Has reports whether the selector contains marker.
func (p PlatformSelector) Has(marker string) bool {
	for _, m := range p {
		if m == marker {
			return true
		}
	}
	return false
}

// Platforms returns the sub-platforms the selector enables, sensor first.
func (p PlatformSelector) Platforms() []Platform {
	var out []Platform
	if p.Has(MarkerSensor) {
		out = append(out, PlatformSensor)
	}
	if p.Has(MarkerWeather) {
		out = append(out, PlatformWeather)
	}
	return out
}

func parsePlatformSelector(s string) PlatformSelector {
	var out PlatformSelector
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// UpdateListener is called by the host after an entry's options change.
type UpdateListener func(ctx context.Context, e *Entry) error
