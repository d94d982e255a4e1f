package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port string

	// HTTPTimeout bounds each outbound Pirate Weather request.
	HTTPTimeout time.Duration
	// RefreshTimeout bounds each scheduled coordinator refresh.
	RefreshTimeout time.Duration

	PirateWeatherBaseURL string

	// EntriesFile declares the config entries to set up at start.
	EntriesFile string

	// Home location used by entries without coordinates. When no coordinates
	// are set, HomeCity/HomeCountry are geocoded with GeocoderAPIKey.
	HomeLatitude   *float64
	HomeLongitude  *float64
	HomeCity       string
	HomeCountry    string
	GeocoderAPIKey string

	// In-memory snapshot history retention.
	StoreMaxHistory int           // max number of snapshots per location (0 = unlimited)
	StoreMaxAge     time.Duration // max age of snapshots (0 = unlimited)

	LogLevel  string // debug, info, warn, error
	LogFormat string // text, json
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.PirateWeatherBaseURL = getenvDefault("PIRATEWEATHER_BASE_URL", "https://api.pirateweather.net")
	cfg.EntriesFile = getenvDefault("PW_ENTRIES_FILE", "entries.yaml")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.RefreshTimeout, err = getenvDuration("REFRESH_TIMEOUT", "30s"); err != nil {
		return nil, err
	}

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 72) // a day at the default 20-minute scan interval
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	if cfg.HomeLatitude, err = getenvFloat("HOME_LATITUDE"); err != nil {
		return nil, err
	}
	if cfg.HomeLongitude, err = getenvFloat("HOME_LONGITUDE"); err != nil {
		return nil, err
	}
	if (cfg.HomeLatitude == nil) != (cfg.HomeLongitude == nil) {
		return nil, fmt.Errorf("HOME_LATITUDE and HOME_LONGITUDE must be set together")
	}
	cfg.HomeCity = os.Getenv("HOME_CITY")
	cfg.HomeCountry = os.Getenv("HOME_COUNTRY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "text"))

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvFloat(key string) (*float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &f, nil
}
