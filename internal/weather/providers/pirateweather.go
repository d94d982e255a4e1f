package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/pirateweather/internal/weather"
	"github.com/sony/gobreaker"
)

// DefaultPirateWeatherURL is the public Pirate Weather endpoint.
const DefaultPirateWeatherURL = "https://api.pirateweather.net"

// PirateWeatherProvider implements the weather.Provider interface for Pirate Weather.
// Forecasts are always requested in SI units.
type PirateWeatherProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewPirateWeatherProvider(client *http.Client, baseURL string) *PirateWeatherProvider {
	if baseURL == "" {
		baseURL = DefaultPirateWeatherURL
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pirateweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &PirateWeatherProvider{
		name:    "pirateweather",
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

func (p *PirateWeatherProvider) Name() string {
	return p.name
}

func (p *PirateWeatherProvider) Fetch(ctx context.Context, apiKey string, loc weather.Location) (weather.Forecast, error) {
	if apiKey == "" {
		return weather.Forecast{}, fmt.Errorf("pirateweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("units", "si")
		values.Set("extend", "hourly")

		coords := strconv.FormatFloat(loc.Latitude, 'f', -1, 64) + "," +
			strconv.FormatFloat(loc.Longitude, 'f', -1, 64)
		u := fmt.Sprintf("%s/forecast/%s/%s?%s", p.baseURL, url.PathEscape(apiKey), coords, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Forecast{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Timezone  string            `json:"timezone"`
		Currently weather.DataPoint `json:"currently"`
		Hourly    weather.DataBlock `json:"hourly"`
		Daily     weather.DataBlock `json:"daily"`
		Alerts    []weather.Alert   `json:"alerts"`
		Flags     struct {
			Units string `json:"units"`
		} `json:"flags"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Forecast{}, fmt.Errorf("decode pirateweather response: %w", err)
	}

	units := payload.Flags.Units
	if units == "" {
		units = "si"
	}

	return weather.Forecast{
		Location:  loc,
		Timezone:  payload.Timezone,
		Currently: payload.Currently,
		Hourly:    payload.Hourly,
		Daily:     payload.Daily,
		Alerts:    payload.Alerts,
		Units:     units,
		FetchedAt: time.Now().UTC(),
	}, nil
}
