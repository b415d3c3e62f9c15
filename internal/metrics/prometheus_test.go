package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorderExposesObservations(t *testing.T) {
	r := NewPrometheusRecorder()
	r.ObserveCity("ok", 120*time.Millisecond)
	r.ObserveCity("ok", 80*time.Millisecond)
	r.ObserveCity("transport_error", 2*time.Second)
	r.ObserveRun(3, 1, 2*time.Second)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, `forecast_city_fetch_total{outcome="ok"} 2`)
	assert.Contains(t, text, `forecast_city_fetch_total{outcome="transport_error"} 1`)
	assert.Contains(t, text, `forecast_run_cities{result="failed"} 1`)
	assert.Contains(t, text, `forecast_run_cities{result="ok"} 2`)
	assert.Contains(t, text, "forecast_runs_total 1")
	assert.Contains(t, text, "go_goroutines")
}

func TestPrometheusRecordersAreIsolated(t *testing.T) {
	a := NewPrometheusRecorder()
	b := NewPrometheusRecorder()
	a.ObserveRun(1, 0, time.Millisecond)

	families, err := b.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "forecast_runs_total" {
			assert.Equal(t, 0.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
}
