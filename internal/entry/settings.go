package entry

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
)

var (
	// ErrMissingKey is returned when a required key is absent from an entry.
	ErrMissingKey = errors.New("missing config key")

	validate = validator.New()
)

// Settings is the typed form of an entry, produced by Resolve.
type Settings struct {
	Name                string           `json:"name" validate:"required"`
	APIKey              string           `json:"-" validate:"required"`
	Latitude            float64          `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude           float64          `json:"longitude" validate:"gte=-180,lte=180"`
	Mode                string           `json:"mode" validate:"oneof=daily hourly"`
	Language            string           `json:"language" validate:"required"`
	MonitoredConditions []string         `json:"monitored_conditions"`
	Units               string           `json:"units" validate:"oneof=si us ca uk"`
	ForecastDays        []int            `json:"forecast_days" validate:"dive,gte=0"`
	ForecastHours       []int            `json:"forecast_hours" validate:"dive,gte=0"`
	Platforms           PlatformSelector `json:"platforms"`
	Round               bool             `json:"round"`
	ScanInterval        time.Duration    `json:"scan_interval" validate:"gt=0"`
}

// Resolve reads every recognised key of e into Settings. Name, API key and
// scan interval always come from the entry's data; the coordinates come from
// data and fall back to homeLat/homeLon.
func Resolve(e *Entry, homeLat, homeLon float64) (Settings, error) {
	var (
		s   Settings
		err error
	)

	if s.Name, err = dataString(e, KeyName); err != nil {
		return s, err
	}
	if s.APIKey, err = dataString(e, KeyAPIKey); err != nil {
		return s, err
	}

	s.Latitude, s.Longitude = homeLat, homeLon
	if v, ok := e.Data[KeyLatitude]; ok {
		if s.Latitude, err = cast.ToFloat64E(v); err != nil {
			return s, fmt.Errorf("%s: %w", KeyLatitude, err)
		}
	}
	if v, ok := e.Data[KeyLongitude]; ok {
		if s.Longitude, err = cast.ToFloat64E(v); err != nil {
			return s, fmt.Errorf("%s: %w", KeyLongitude, err)
		}
	}

	if s.Mode, err = optionString(e, KeyMode); err != nil {
		return s, err
	}
	if s.Language, err = optionString(e, KeyLanguage); err != nil {
		return s, err
	}
	if s.Units, err = optionString(e, KeyUnits); err != nil {
		return s, err
	}

	conditions, err := option(e, KeyMonitoredConditions)
	if err != nil {
		return s, err
	}
	if conditions != nil {
		if s.MonitoredConditions, err = cast.ToStringSliceE(conditions); err != nil {
			return s, fmt.Errorf("%s: %w", KeyMonitoredConditions, err)
		}
	}

	days, err := option(e, KeyForecastDays)
	if err != nil {
		return s, err
	}
	if s.ForecastDays, err = selectorValue(days); err != nil {
		return s, fmt.Errorf("%s: %w", KeyForecastDays, err)
	}
	hours, err := option(e, KeyForecastHours)
	if err != nil {
		return s, err
	}
	if s.ForecastHours, err = selectorValue(hours); err != nil {
		return s, fmt.Errorf("%s: %w", KeyForecastHours, err)
	}

	platforms, err := option(e, KeyPlatform)
	if err != nil {
		return s, err
	}
	if str, ok := platforms.(string); ok {
		s.Platforms = parsePlatformSelector(str)
	} else {
		list, err := cast.ToStringSliceE(platforms)
		if err != nil {
			return s, fmt.Errorf("%s: %w", KeyPlatform, err)
		}
		s.Platforms = list
	}

	round, err := option(e, KeyRound)
	if err != nil {
		return s, err
	}
	if s.Round, err = cast.ToBoolE(round); err != nil {
		return s, fmt.Errorf("%s: %w", KeyRound, err)
	}

	raw, ok := e.Data[KeyScanInterval]
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrMissingKey, KeyScanInterval)
	}
	seconds, err := cast.ToIntE(raw)
	if err != nil {
		return s, fmt.Errorf("%s: %w", KeyScanInterval, err)
	}
	s.ScanInterval = time.Duration(seconds) * time.Second

	if err := validate.Struct(s); err != nil {
		return s, fmt.Errorf("invalid entry %s: %w", e.ID, err)
	}
	return s, nil
}

func option(e *Entry, key string) (any, error) {
	v, ok := Value(e, key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	return v, nil
}

func optionString(e *Entry, key string) (string, error) {
	v, err := option(e, key)
	if err != nil {
		return "", err
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return s, nil
}

func dataString(e *Entry, key string) (string, error) {
	v, ok := e.Data[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return s, nil
}
