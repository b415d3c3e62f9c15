package httpapi

import (
	"time"

	"github.com/liondevhq/weather-tomorrow/internal/weather"
)

const (
	statusOK          = "ok"
	statusUnavailable = "unavailable"
)

// forecastEntry is one row of the forecast list. Failed cities keep their
// position and carry the error kind instead of a summary.
type forecastEntry struct {
	TrackedID   int64                 `json:"trackedId"`
	City        string                `json:"city"`
	Country     string                `json:"country"`
	Status      string                `json:"status"`
	Error       string                `json:"error,omitempty"`
	Temperature string                `json:"temperature,omitempty"`
	Summary     *weather.DailySummary `json:"summary,omitempty"`
}

func newForecastEntry(res weather.CityResult) forecastEntry {
	e := forecastEntry{
		TrackedID: res.Location.ID,
		City:      res.Location.City,
		Country:   res.Location.Country,
		Status:    statusOK,
	}
	if !res.OK() {
		e.Status = statusUnavailable
		e.Error = weather.ErrorKind(res.Err)
		return e
	}
	e.Temperature = res.Summary.TemperatureRange()
	e.Summary = res.Summary
	return e
}

type runView struct {
	ID            string          `json:"id"`
	StartedAt     time.Time       `json:"startedAt"`
	DurationMS    int64           `json:"durationMs"`
	ReferenceHour int             `json:"referenceHour"`
	Units         weather.Units   `json:"units"`
	Unavailable   int             `json:"unavailable"`
	Forecasts     []forecastEntry `json:"forecasts"`
}

func newRunView(run weather.RunResult) runView {
	v := runView{
		ID:            run.ID,
		StartedAt:     run.StartedAt,
		DurationMS:    run.Duration.Milliseconds(),
		ReferenceHour: run.ReferenceHour,
		Units:         run.Units,
		Unavailable:   run.Failed(),
		Forecasts:     make([]forecastEntry, 0, len(run.Results)),
	}
	for _, res := range run.Results {
		v.Forecasts = append(v.Forecasts, newForecastEntry(res))
	}
	return v
}
