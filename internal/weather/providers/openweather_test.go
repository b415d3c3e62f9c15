package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liondevhq/weather-tomorrow/internal/weather"
)

// forecastJSON renders an OpenWeatherMap forecast payload with n samples.
func forecastJSON(t *testing.T, n int) []byte {
	t.Helper()
	list := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, map[string]any{
			"dt": 1700000000 + i*10800,
			"main": map[string]any{
				"temp_min": float64(i),
				"temp_max": float64(i) + 2,
				"humidity": 50 + i,
			},
			"weather": []map[string]any{{"id": 800, "main": "Clear", "description": "clear sky"}},
			"wind":    map[string]any{"speed": 3.5},
		})
	}
	b, err := json.Marshal(map[string]any{
		"cod":  "200",
		"city": map[string]any{"id": 703448, "name": "Kyiv", "country": "UA"},
		"list": list,
	})
	require.NoError(t, err)
	return b
}

func TestOpenWeatherFetcherBuildsQuery(t *testing.T) {
	payload := forecastJSON(t, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Kyiv,UA", q.Get("q"))
		assert.Equal(t, "16", q.Get("cnt"))
		assert.Equal(t, "imperial", q.Get("units"))
		assert.Equal(t, "secret", q.Get("appid"))
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	f := NewOpenWeatherFetcher(srv.Client(), OpenWeatherConfig{APIKey: "secret", BaseURL: srv.URL})
	body, err := f.Fetch(context.Background(), weather.Location{City: "Kyiv", Country: "UA"}, weather.UnitsImperial)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(body))
}

func TestOpenWeatherFetcherNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewOpenWeatherFetcher(srv.Client(), OpenWeatherConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := f.Fetch(context.Background(), weather.Location{City: "Atlantis", Country: "XX"}, weather.UnitsMetric)
	assert.ErrorIs(t, err, errUnexpected)
}

func TestOpenWeatherFetcherRequiresAPIKey(t *testing.T) {
	f := NewOpenWeatherFetcher(http.DefaultClient, OpenWeatherConfig{})
	_, err := f.Fetch(context.Background(), weather.Location{City: "Kyiv", Country: "UA"}, weather.UnitsMetric)
	assert.Error(t, err)
}

func TestOpenWeatherFetcherNoRetriesByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewOpenWeatherFetcher(srv.Client(), OpenWeatherConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := f.Fetch(context.Background(), weather.Location{City: "Kyiv", Country: "UA"}, weather.UnitsMetric)
	assert.ErrorIs(t, err, errServerError)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenWeatherFetcherRetriesWhenConfigured(t *testing.T) {
	var calls atomic.Int32
	payload := forecastJSON(t, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	f := NewOpenWeatherFetcher(srv.Client(), OpenWeatherConfig{
		APIKey:  "k",
		BaseURL: srv.URL,
		Backoff: BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
	})
	_, err := f.Fetch(context.Background(), weather.Location{City: "Kyiv", Country: "UA"}, weather.UnitsMetric)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenWeatherFetcherReadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewHTTPClient(TimeoutConfig{Connect: time.Second, Read: 50 * time.Millisecond})
	f := NewOpenWeatherFetcher(client, OpenWeatherConfig{APIKey: "k", BaseURL: srv.URL})

	start := time.Now()
	_, err := f.Fetch(context.Background(), weather.Location{City: "Kyiv", Country: "UA"}, weather.UnitsMetric)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRateLimitedFetcherHonoursContext(t *testing.T) {
	inner := fetcherFunc(func(ctx context.Context, loc weather.Location, u weather.Units) ([]byte, error) {
		return []byte("{}"), nil
	})
	f := NewRateLimitedFetcher(inner, 0.001, 1)
	assert.Equal(t, "stub [rate limited]", f.Name())

	_, err := f.Fetch(context.Background(), weather.Location{City: "A"}, weather.UnitsMetric)
	require.NoError(t, err, "first request uses the burst token")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, weather.Location{City: "B"}, weather.UnitsMetric)
	assert.Error(t, err)
}

type fetcherFunc func(ctx context.Context, loc weather.Location, u weather.Units) ([]byte, error)

func (f fetcherFunc) Name() string { return "stub" }

func (f fetcherFunc) Fetch(ctx context.Context, loc weather.Location, u weather.Units) ([]byte, error) {
	return f(ctx, loc, u)
}

func TestForecastQuery(t *testing.T) {
	q := ForecastQuery(weather.Location{City: "San Jose", Country: "CR"}, "", "key")
	assert.Equal(t, "San Jose,CR", q.Get("q"))
	assert.Equal(t, "metric", q.Get("units"))
	assert.Equal(t, fmt.Sprint(weather.MinSamples), q.Get("cnt"))
}

func TestOpenWeatherFetcherClientErrorsDoNotOpenBreaker(t *testing.T) {
	payload := forecastJSON(t, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Query().Get("q"), "Bad") {
			http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	f := NewOpenWeatherFetcher(srv.Client(), OpenWeatherConfig{APIKey: "k", BaseURL: srv.URL})
	orch := weather.NewOrchestrator(f, OpenWeatherParser{}, weather.OrchestratorConfig{
		Workers: 1,
		Now:     func() time.Time { return time.Date(2026, 10, 17, 10, 0, 0, 0, time.Local) },
	})

	var locs []weather.Location
	for i := 0; i < 8; i++ {
		locs = append(locs, weather.Location{City: fmt.Sprintf("Bad%d", i), Country: "XX"})
	}
	locs = append(locs, weather.Location{City: "London", Country: "GB"})

	run := orch.FetchSummaries(context.Background(), locs, weather.UnitsMetric)
	require.Len(t, run.Results, 9)
	for _, res := range run.Results[:8] {
		assert.ErrorIs(t, res.Err, errUnexpected)
		assert.NotErrorIs(t, res.Err, errCircuitOpen)
	}
	assert.True(t, run.Results[8].OK(), "misspelled cities must not cost a valid city its summary: %v", run.Results[8].Err)
}

func TestOpenWeatherFetcherServerErrorsOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewOpenWeatherFetcher(srv.Client(), OpenWeatherConfig{APIKey: "k", BaseURL: srv.URL})
	loc := weather.Location{City: "Kyiv", Country: "UA"}
	for i := 0; i < 6; i++ {
		_, err := f.Fetch(context.Background(), loc, weather.UnitsMetric)
		assert.ErrorIs(t, err, errServerError)
	}

	_, err := f.Fetch(context.Background(), loc, weather.UnitsMetric)
	assert.ErrorIs(t, err, errCircuitOpen)
	assert.Equal(t, int32(6), calls.Load())
}

func TestOpenWeatherFetcherDoesNotRetryClientErrors(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusNotFound} {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(status)
		}))

		f := NewOpenWeatherFetcher(srv.Client(), OpenWeatherConfig{
			APIKey:  "k",
			BaseURL: srv.URL,
			Backoff: BackoffConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
		})
		_, err := f.Fetch(context.Background(), weather.Location{City: "Kyiv", Country: "UA"}, weather.UnitsMetric)
		assert.ErrorIs(t, err, errUnexpected, "status %d", status)
		assert.Equal(t, int32(1), calls.Load(), "status %d", status)
		srv.Close()
	}
}

func TestOpenWeatherFetcherRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	payload := forecastJSON(t, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	f := NewOpenWeatherFetcher(srv.Client(), OpenWeatherConfig{
		APIKey:  "k",
		BaseURL: srv.URL,
		Backoff: BackoffConfig{MaxRetries: 1, InitialInterval: time.Millisecond},
	})
	_, err := f.Fetch(context.Background(), weather.Location{City: "Kyiv", Country: "UA"}, weather.UnitsMetric)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
