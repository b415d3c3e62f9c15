package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/liondevhq/weather-tomorrow/internal/logger"
	"github.com/liondevhq/weather-tomorrow/internal/weather"
)

type AppConfig struct {
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string `validate:"omitempty,url"`

	// Units is the default unit preference until one is stored.
	Units weather.Units `validate:"oneof=metric imperial"`

	// FetchInterval controls how often all tracked cities are refreshed.
	FetchInterval time.Duration `validate:"gt=0"`
	// FetchTimeout bounds fetch and parse for one city.
	FetchTimeout time.Duration `validate:"gt=0"`
	// RefreshTimeout bounds a whole run, scheduled or on demand.
	RefreshTimeout     time.Duration `validate:"gt=0"`
	HTTPConnectTimeout time.Duration `validate:"gte=0"`
	HTTPReadTimeout    time.Duration `validate:"gte=0"`
	FetchWorkers       int           `validate:"gte=0"`
	FetchMaxRetries    int           `validate:"gte=0"`

	// Outbound rate limit; 0 disables it.
	RateLimitRPS   float64 `validate:"gte=0"`
	RateLimitBurst int     `validate:"gte=0"`

	DBPath string `validate:"required"`

	// Run history retention.
	StoreMaxHistory int           `validate:"gte=0"` // max number of runs kept (0 = unlimited)
	StoreMaxAge     time.Duration `validate:"gte=0"` // max age of runs (0 = unlimited)

	Port     string `validate:"required,numeric"`
	LogLevel string

	// Locations seed the city store on first start.
	Locations []weather.Location
}

// fileConfig mirrors the optional YAML file named by CONFIG_FILE.
type fileConfig struct {
	OpenWeather struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"openweather"`
	Units string `yaml:"units"`
	Fetch struct {
		Interval   string `yaml:"interval"`
		Timeout    string `yaml:"timeout"`
		RunTimeout string `yaml:"run_timeout"`
		Workers    *int   `yaml:"workers"`
		MaxRetries *int   `yaml:"max_retries"`
	} `yaml:"fetch"`
	HTTP struct {
		ConnectTimeout string `yaml:"connect_timeout"`
		ReadTimeout    string `yaml:"read_timeout"`
	} `yaml:"http"`
	RateLimit struct {
		RPS   *float64 `yaml:"rps"`
		Burst *int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	Store struct {
		DBPath     string `yaml:"db_path"`
		MaxHistory *int   `yaml:"max_history"`
		MaxAge     string `yaml:"max_age"`
	} `yaml:"store"`
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	Cities   []struct {
		City    string `yaml:"city"`
		Country string `yaml:"country"`
	} `yaml:"cities"`
}

var validate = validator.New()

// Load reads configuration from defaults, then the YAML file named by
// CONFIG_FILE, then environment variables.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debugf("no .env file found or error loading it: %v", err)
	}

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := loadEnv(cfg); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.OpenWeatherAPIKey == "" {
		logger.Warnf("OPENWEATHER_API_KEY is not set; every forecast fetch will fail")
	}
	return cfg, nil
}

func defaults() *AppConfig {
	return &AppConfig{
		Units:              weather.UnitsMetric,
		FetchInterval:      15 * time.Minute,
		FetchTimeout:       weather.DefaultFetchTimeout,
		RefreshTimeout:     2 * time.Minute,
		HTTPConnectTimeout: 15 * time.Second,
		HTTPReadTimeout:    10 * time.Second,
		FetchWorkers:       4,
		RateLimitBurst:     1,
		DBPath:             "weather.db",
		StoreMaxHistory:    96, // roughly 24h at 15-minute intervals
		StoreMaxAge:        24 * time.Hour,
		Port:               "8080",
		LogLevel:           "INFO",
	}
}

func loadFile(path string, cfg *AppConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.OpenWeatherAPIKey, fc.OpenWeather.APIKey)
	setString(&cfg.OpenWeatherBaseURL, fc.OpenWeather.BaseURL)
	setString(&cfg.DBPath, fc.Store.DBPath)
	setString(&cfg.Port, fc.Port)
	setString(&cfg.LogLevel, fc.LogLevel)
	if fc.Units != "" {
		cfg.Units = weather.Units(strings.ToLower(fc.Units))
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"fetch.interval", fc.Fetch.Interval, &cfg.FetchInterval},
		{"fetch.timeout", fc.Fetch.Timeout, &cfg.FetchTimeout},
		{"fetch.run_timeout", fc.Fetch.RunTimeout, &cfg.RefreshTimeout},
		{"http.connect_timeout", fc.HTTP.ConnectTimeout, &cfg.HTTPConnectTimeout},
		{"http.read_timeout", fc.HTTP.ReadTimeout, &cfg.HTTPReadTimeout},
		{"store.max_age", fc.Store.MaxAge, &cfg.StoreMaxAge},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s in %s: %w", d.key, path, err)
		}
		*d.dst = v
	}

	setInt(&cfg.FetchWorkers, fc.Fetch.Workers)
	setInt(&cfg.FetchMaxRetries, fc.Fetch.MaxRetries)
	setInt(&cfg.RateLimitBurst, fc.RateLimit.Burst)
	setInt(&cfg.StoreMaxHistory, fc.Store.MaxHistory)
	if fc.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *fc.RateLimit.RPS
	}

	for _, c := range fc.Cities {
		cfg.Locations = append(cfg.Locations, weather.Location{
			City:    strings.TrimSpace(c.City),
			Country: strings.TrimSpace(c.Country),
		})
	}
	return nil
}

func loadEnv(cfg *AppConfig) error {
	cfg.OpenWeatherAPIKey = getenvDefault("OPENWEATHER_API_KEY", cfg.OpenWeatherAPIKey)
	cfg.OpenWeatherBaseURL = getenvDefault("OPENWEATHER_BASE_URL", cfg.OpenWeatherBaseURL)
	cfg.Units = weather.Units(strings.ToLower(getenvDefault("UNITS", string(cfg.Units))))

	var err error
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", cfg.FetchInterval); err != nil {
		return err
	}
	if cfg.FetchTimeout, err = getenvDuration("FETCH_TIMEOUT", cfg.FetchTimeout); err != nil {
		return err
	}
	if cfg.RefreshTimeout, err = getenvDuration("REFRESH_TIMEOUT", cfg.RefreshTimeout); err != nil {
		return err
	}
	if cfg.HTTPConnectTimeout, err = getenvDuration("HTTP_CONNECT_TIMEOUT", cfg.HTTPConnectTimeout); err != nil {
		return err
	}
	if cfg.HTTPReadTimeout, err = getenvDuration("HTTP_READ_TIMEOUT", cfg.HTTPReadTimeout); err != nil {
		return err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", cfg.StoreMaxAge); err != nil {
		return err
	}

	cfg.FetchWorkers = getenvInt("FETCH_WORKERS", cfg.FetchWorkers)
	cfg.FetchMaxRetries = getenvInt("FETCH_MAX_RETRIES", cfg.FetchMaxRetries)
	cfg.RateLimitRPS = getenvFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getenvInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", cfg.StoreMaxHistory)
	cfg.DBPath = getenvDefault("DB_PATH", cfg.DBPath)
	cfg.Port = getenvDefault("PORT", cfg.Port)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)

	locs, err := loadPrimaryLocation()
	if err != nil {
		return err
	}
	if len(locs) > 0 {
		cfg.Locations = locs
	}
	return nil
}

// loadPrimaryLocation reads comma separated, index aligned city and country
// lists from the environment.
func loadPrimaryLocation() ([]weather.Location, error) {
	city := os.Getenv("WEATHER_LOCATION_CITY")
	country := os.Getenv("WEATHER_LOCATION_COUNTRY")
	if city == "" && country == "" {
		return nil, nil
	}
	cities := strings.Split(city, ",")
	countries := strings.Split(country, ",")
	if len(cities) != len(countries) {
		return nil, fmt.Errorf("number of cities and countries must be the same")
	}
	var locs []weather.Location
	for i := range cities {
		locs = append(locs, weather.Location{
			City:    strings.TrimSpace(cities[i]),
			Country: strings.TrimSpace(countries[i]),
		})
	}

	return locs, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
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
		logger.Warnf("ignoring invalid %s=%q", key, v)
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
		logger.Warnf("ignoring invalid %s=%q", key, v)
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
