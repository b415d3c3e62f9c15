package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liondevhq/weather-tomorrow/internal/logger"
	"github.com/liondevhq/weather-tomorrow/internal/weather"
)

// PrometheusRecorder implements weather.Recorder on a private registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// City metrics
	cityOutcomes        *prometheus.CounterVec
	cityDurationSeconds *prometheus.HistogramVec

	// Run metrics
	runDurationSeconds prometheus.Histogram
	runCities          *prometheus.GaugeVec
	runsTotal          prometheus.Counter
	lastRunTimestamp   prometheus.Gauge
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		cityOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_city_fetch_total",
			Help: "Total city forecast fetches by outcome.",
		}, []string{"outcome"}),
		cityDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forecast_city_fetch_duration_seconds",
			Help:    "Duration of fetch, parse and aggregation for one city.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		runDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "forecast_run_duration_seconds",
			Help:    "Duration of orchestration runs.",
			Buckets: prometheus.DefBuckets,
		}),
		runCities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forecast_run_cities",
			Help: "Cities in the most recent run by result.",
		}, []string{"result"}),
		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forecast_runs_total",
			Help: "Total orchestration runs.",
		}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forecast_last_run_timestamp_seconds",
			Help: "Unix time the most recent run finished.",
		}),
	}

	registry.MustRegister(r.cityOutcomes)
	registry.MustRegister(r.cityDurationSeconds)
	registry.MustRegister(r.runDurationSeconds)
	registry.MustRegister(r.runCities)
	registry.MustRegister(r.runsTotal)
	registry.MustRegister(r.lastRunTimestamp)

	return r
}

// Registry returns the Prometheus registry.
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveCity records the outcome of one city.
func (r *PrometheusRecorder) ObserveCity(outcome string, d time.Duration) {
	r.cityOutcomes.WithLabelValues(outcome).Inc()
	r.cityDurationSeconds.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveRun records a finished run.
func (r *PrometheusRecorder) ObserveRun(cities, failed int, d time.Duration) {
	r.runsTotal.Inc()
	r.runDurationSeconds.Observe(d.Seconds())
	r.runCities.WithLabelValues("ok").Set(float64(cities - failed))
	r.runCities.WithLabelValues("failed").Set(float64(failed))
	r.lastRunTimestamp.SetToCurrentTime()
	logger.Debugf("metrics: run recorded (cities=%d failed=%d)", cities, failed)
}

var _ weather.Recorder = (*PrometheusRecorder)(nil)
