package weather

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CityDetailsBaseURL is the public OpenWeatherMap page for a city id.
const CityDetailsBaseURL = "https://openweathermap.org/city/"

// Units selects the measurement system requested from the upstream API.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

// Valid reports whether u is one of the supported unit systems.
func (u Units) Valid() bool {
	return u == UnitsMetric || u == UnitsImperial
}

// ParseUnits normalizes s into Units, rejecting unknown values.
func ParseUnits(s string) (Units, error) {
	u := Units(strings.ToLower(strings.TrimSpace(s)))
	if !u.Valid() {
		return "", fmt.Errorf("unsupported units %q", s)
	}
	return u, nil
}

// Location is a (city, country) pair to fetch a forecast for.
// ID is the tracked-city row id when the location comes from the city store.
type Location struct {
	ID      int64  `json:"id,omitempty"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return l.City + ":" + l.Country
}

// TrackedCity is a city the user asked to follow.
type TrackedCity struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Location converts the tracked city into a fetchable location.
func (c TrackedCity) Location() Location {
	return Location{ID: c.ID, City: c.Name, Country: c.Country}
}

// ForecastSample is one 3-hour bucket of the upstream forecast. Its position
// in ForecastSeries.Samples is its timestamp: index 0 is the next bucket
// after fetch time.
type ForecastSample struct {
	TempMin     float64
	TempMax     float64
	HumidityPct float64
	WindSpeedMS float64
	ConditionID string
	Description string

	// MissingFields names required payload fields the parser did not find.
	// A sample with missing fields fails aggregation if it is in the window.
	MissingFields []string
}

// Complete reports whether every required field was present.
func (s ForecastSample) Complete() bool {
	return len(s.MissingFields) == 0
}

// ForecastSeries is the parsed forecast for one city.
type ForecastSeries struct {
	CityID   int64
	CityName string
	Country  string
	Samples  []ForecastSample
}

// Label returns "<name>, <country>".
func (s ForecastSeries) Label() string {
	return s.CityName + ", " + s.Country
}

// DailySummary is tomorrow's aggregated forecast for one city.
type DailySummary struct {
	TrackedID   int64   `json:"trackedId,omitempty"`
	CityID      int64   `json:"cityId"`
	City        string  `json:"city"`
	MinTemp     float64 `json:"minTemp"`
	MaxTemp     float64 `json:"maxTemp"`
	Humidity    int     `json:"humidityPercent"`
	WindSpeed   float64 `json:"windSpeed"`
	ConditionID string  `json:"conditionId"`
	Description string  `json:"description"`
	DetailsURL  string  `json:"detailsUrl"`
	Units       Units   `json:"units"`
}

// TemperatureRange renders the "min/max" label shown in list rows.
func (d DailySummary) TemperatureRange() string {
	return strconv.FormatFloat(d.MinTemp, 'f', -1, 64) + "/" + strconv.FormatFloat(d.MaxTemp, 'f', -1, 64)
}

// DetailsURL returns the external page for an upstream city id.
func DetailsURL(cityID int64) string {
	return CityDetailsBaseURL + strconv.FormatInt(cityID, 10)
}

// CityResult is the outcome for one location of a run. Exactly one of
// Summary and Err is set.
type CityResult struct {
	Location Location      `json:"location"`
	Summary  *DailySummary `json:"summary,omitempty"`
	Err      error         `json:"-"`
}

// OK reports whether the city produced a summary.
func (r CityResult) OK() bool {
	return r.Summary != nil && r.Err == nil
}

// RunResult is the ordered outcome of one orchestration run. Results are
// aligned with the locations the run was started with.
type RunResult struct {
	ID            string        `json:"id"`
	StartedAt     time.Time     `json:"startedAt"` // always UTC
	Duration      time.Duration `json:"duration"`
	ReferenceHour int           `json:"referenceHour"`
	Units         Units         `json:"units"`
	Results       []CityResult  `json:"results"`
}

// Failed returns the number of cities without a summary.
func (r RunResult) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK() {
			n++
		}
	}
	return n
}

// Find returns the result for the tracked city id.
func (r RunResult) Find(trackedID int64) (CityResult, bool) {
	for _, res := range r.Results {
		if res.Location.ID == trackedID {
			return res, true
		}
	}
	return CityResult{}, false
}
