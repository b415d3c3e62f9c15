package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/liondevhq/weather-tomorrow/internal/weather"
)

const (
	// DefaultOpenWeatherURL is the 5 day / 3 hour forecast endpoint.
	DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/forecast"

	maxPayloadBytes = 1 << 20
)

// OpenWeatherConfig configures an OpenWeatherFetcher.
type OpenWeatherConfig struct {
	APIKey  string
	BaseURL string
	Backoff BackoffConfig
}

// OpenWeatherFetcher implements weather.RawSeriesFetcher for OpenWeatherMap.
type OpenWeatherFetcher struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherFetcher(client *http.Client, cfg OpenWeatherConfig) *OpenWeatherFetcher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}

	return &OpenWeatherFetcher{
		name:    "openweathermap",
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: cfg.Backoff,
		},
		circuit: cb,
	}
}

func (p *OpenWeatherFetcher) Name() string {
	return p.name
}

// Fetch downloads the raw forecast for loc. The request asks for
// weather.MinSamples samples so every tomorrow window fits.
func (p *OpenWeatherFetcher) Fetch(ctx context.Context, loc weather.Location, units weather.Units) ([]byte, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		u, err := url.Parse(p.baseURL)
		if err != nil {
			return nil, err
		}
		u.RawQuery = ForecastQuery(loc, units, p.apiKey).Encode()
		return http.NewRequest(http.MethodGet, u.String(), nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// ForecastQuery builds the query parameters for a forecast request:
// q=<city>,<country>, cnt, units and the API credential.
func ForecastQuery(loc weather.Location, units weather.Units, apiKey string) url.Values {
	q := loc.City
	if loc.Country != "" {
		q = fmt.Sprintf("%s,%s", loc.City, loc.Country)
	}
	if !units.Valid() {
		units = weather.UnitsMetric
	}

	values := url.Values{}
	values.Set("q", q)
	values.Set("cnt", strconv.Itoa(weather.MinSamples))
	values.Set("units", string(units))
	values.Set("appid", apiKey)
	return values
}

var _ weather.RawSeriesFetcher = (*OpenWeatherFetcher)(nil)
