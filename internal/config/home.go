package config

import (
	"fmt"

	"github.com/kelvins/geocoder"
)

var geocode = geocoder.Geocoding

// HomeLocation returns the home coordinates used by entries that have none.
// Explicit coordinates win; otherwise the home city is geocoded. With
// neither configured the home location is 0,0.
func (c *AppConfig) HomeLocation() (lat, lon float64, err error) {
	if c.HomeLatitude != nil && c.HomeLongitude != nil {
		return *c.HomeLatitude, *c.HomeLongitude, nil
	}
	if c.HomeCity == "" {
		return 0, 0, nil
	}
	if c.GeocoderAPIKey == "" {
		return 0, 0, fmt.Errorf("HOME_CITY is set but GEOCODER_API_KEY is not")
	}

	geocoder.ApiKey = c.GeocoderAPIKey
	loc, err := geocode(geocoder.Address{City: c.HomeCity, Country: c.HomeCountry})
	if err != nil {
		return 0, 0, fmt.Errorf("geocode %s, %s: %w", c.HomeCity, c.HomeCountry, err)
	}
	return loc.Latitude, loc.Longitude, nil
}
