package weather

import (
	"context"
	"time"
)

// RawSeriesFetcher retrieves the raw forecast payload for a location.
// Any transport failure or non-success status is returned as an error.
type RawSeriesFetcher interface {
	Name() string
	Fetch(ctx context.Context, loc Location, units Units) ([]byte, error)
}

// SeriesParser turns a raw payload into a ForecastSeries.
type SeriesParser interface {
	Parse(payload []byte) (ForecastSeries, error)
}

// CityStore supplies and maintains the ordered list of tracked cities.
type CityStore interface {
	ListCities(ctx context.Context) ([]TrackedCity, error)
	GetCity(ctx context.Context, id int64) (TrackedCity, error)
	AddCity(ctx context.Context, name, country string) (TrackedCity, error)
	UpdateCity(ctx context.Context, city TrackedCity) error
	DeleteCity(ctx context.Context, id int64) error
	DeleteAllCities(ctx context.Context) (int64, error)
}

// SettingsStore persists user preferences.
type SettingsStore interface {
	Units(ctx context.Context) (Units, error)
	SetUnits(ctx context.Context, u Units) error
}

// SummaryPresenter receives each completed run for rendering.
type SummaryPresenter interface {
	Present(ctx context.Context, run RunResult) error
}

// RunStore is the read side of the presenter kept by the service.
type RunStore interface {
	SummaryPresenter
	GetLatest() (RunResult, error)
	GetRange(from, to time.Time) ([]RunResult, error)
}

// Recorder observes orchestration outcomes. Implementations must be safe
// for concurrent use.
type Recorder interface {
	ObserveCity(kind string, d time.Duration)
	ObserveRun(cities, failed int, d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ObserveCity(string, time.Duration) {}
func (noopRecorder) ObserveRun(int, int, time.Duration) {}
