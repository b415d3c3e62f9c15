package weather

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/liondevhq/weather-tomorrow/internal/logger"
)

// Service ties the city store, settings, orchestrator and run history
// together.
type Service struct {
	cities   CityStore
	settings SettingsStore
	runs     RunStore
	orch     *Orchestrator

	// refreshMu keeps runs from interleaving so history stays ordered.
	refreshMu sync.Mutex
}

// NewService creates a new Service.
func NewService(cities CityStore, settings SettingsStore, runs RunStore, orch *Orchestrator) *Service {
	return &Service{
		cities:   cities,
		settings: settings,
		runs:     runs,
		orch:     orch,
	}
}

// Refresh runs the whole pipeline for every tracked city and stores the
// result. Per-city failures are part of the returned run, not the error.
func (s *Service) Refresh(ctx context.Context) (RunResult, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	units, err := s.settings.Units(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("load units: %w", err)
	}

	cities, err := s.cities.ListCities(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("list cities: %w", err)
	}

	locs := make([]Location, 0, len(cities))
	for _, c := range cities {
		locs = append(locs, c.Location())
	}

	run := s.orch.FetchSummaries(ctx, locs, units)
	if err := s.runs.Present(ctx, run); err != nil {
		return run, fmt.Errorf("store run: %w", err)
	}
	return run, nil
}

// GetLatest returns the most recent run.
func (s *Service) GetLatest() (RunResult, error) {
	return s.runs.GetLatest()
}

// GetRange returns runs started between from and to (inclusive).
func (s *Service) GetRange(from, to time.Time) ([]RunResult, error) {
	return s.runs.GetRange(from, to)
}

// Summary returns the latest result for a tracked city.
func (s *Service) Summary(trackedID int64) (CityResult, error) {
	run, err := s.runs.GetLatest()
	if err != nil {
		return CityResult{}, err
	}
	res, ok := run.Find(trackedID)
	if !ok {
		return CityResult{}, fmt.Errorf("city %d: %w", trackedID, ErrNotFound)
	}
	return res, nil
}

// ListCities returns the tracked cities in insertion order.
func (s *Service) ListCities(ctx context.Context) ([]TrackedCity, error) {
	return s.cities.ListCities(ctx)
}

// GetCity returns one tracked city.
func (s *Service) GetCity(ctx context.Context, id int64) (TrackedCity, error) {
	return s.cities.GetCity(ctx, id)
}

// AddCity starts tracking a city. Name and country are required.
func (s *Service) AddCity(ctx context.Context, name, country string) (TrackedCity, error) {
	name, country, err := normalizeCity(name, country)
	if err != nil {
		return TrackedCity{}, err
	}
	return s.cities.AddCity(ctx, name, country)
}

// UpdateCity changes a tracked city's name and country.
func (s *Service) UpdateCity(ctx context.Context, city TrackedCity) error {
	name, country, err := normalizeCity(city.Name, city.Country)
	if err != nil {
		return err
	}
	city.Name, city.Country = name, country
	return s.cities.UpdateCity(ctx, city)
}

// DeleteCity stops tracking a city.
func (s *Service) DeleteCity(ctx context.Context, id int64) error {
	return s.cities.DeleteCity(ctx, id)
}

// DeleteAllCities clears the tracked list and returns how many were removed.
func (s *Service) DeleteAllCities(ctx context.Context) (int64, error) {
	return s.cities.DeleteAllCities(ctx)
}

// SeedCities adds locs when nothing is tracked yet.
func (s *Service) SeedCities(ctx context.Context, locs []Location) error {
	existing, err := s.cities.ListCities(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 || len(locs) == 0 {
		return nil
	}
	for _, loc := range locs {
		if _, err := s.AddCity(ctx, loc.City, loc.Country); err != nil {
			return fmt.Errorf("seed %s: %w", loc.Key(), err)
		}
	}
	logger.Infof("seeded %d tracked cities", len(locs))
	return nil
}

// Units returns the unit preference.
func (s *Service) Units(ctx context.Context) (Units, error) {
	return s.settings.Units(ctx)
}

// SetUnits stores the unit preference and refreshes forecasts in the new
// units.
func (s *Service) SetUnits(ctx context.Context, u Units) (RunResult, error) {
	if !u.Valid() {
		return RunResult{}, fmt.Errorf("%w: units %q", ErrInvalidInput, u)
	}
	if err := s.settings.SetUnits(ctx, u); err != nil {
		return RunResult{}, err
	}
	return s.Refresh(ctx)
}

func normalizeCity(name, country string) (string, string, error) {
	name = strings.TrimSpace(name)
	country = strings.TrimSpace(country)
	if name == "" {
		return "", "", fmt.Errorf("%w: city name is required", ErrInvalidInput)
	}
	if country == "" {
		return "", "", fmt.Errorf("%w: country is required", ErrInvalidInput)
	}
	return name, country, nil
}
