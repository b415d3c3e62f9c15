package weather

import (
	"fmt"
	"math"
	"strings"

	"github.com/liondevhq/weather-tomorrow/internal/common"
)

// DailyAggregate holds the folded values of one window.
type DailyAggregate struct {
	MinTemp     float64
	MaxTemp     float64
	Humidity    int
	WindSpeed   float64
	ConditionID string
	Description string
	Samples     int
}

// Aggregate reduces a window of samples into one daily aggregate.
// Temperatures are independent running min/max; humidity and wind are means
// over the number of samples folded; condition id and description are the
// most frequent values, ties going to the first seen.
func Aggregate(samples []ForecastSample) (DailyAggregate, error) {
	if len(samples) == 0 {
		return DailyAggregate{}, ErrAggregationInputEmpty
	}

	var (
		minTemp     = math.Inf(1)
		maxTemp     = math.Inf(-1)
		sumHumidity float64
		sumWind     float64
		ids         tally
		descs       tally
	)

	for i, s := range samples {
		if !s.Complete() {
			return DailyAggregate{}, fmt.Errorf("%w: sample %d missing %s",
				ErrMalformedForecastData, i, strings.Join(s.MissingFields, ", "))
		}

		minTemp = math.Min(minTemp, s.TempMin)
		maxTemp = math.Max(maxTemp, s.TempMax)
		sumHumidity += s.HumidityPct
		sumWind += s.WindSpeedMS

		ids.add(s.ConditionID)
		descs.add(s.Description)
	}

	n := float64(len(samples))

	return DailyAggregate{
		MinTemp:     minTemp,
		MaxTemp:     maxTemp,
		Humidity:    common.RoundHalfUpInt(sumHumidity / n),
		WindSpeed:   common.RoundHalfUp(sumWind/n, 2),
		ConditionID: ids.mode(),
		Description: descs.mode(),
		Samples:     len(samples),
	}, nil
}

// Summarize selects tomorrow's window of series for referenceHour and
// aggregates it into a DailySummary.
func Summarize(series ForecastSeries, referenceHour int, units Units) (DailySummary, error) {
	w, err := SelectWindow(referenceHour)
	if err != nil {
		return DailySummary{}, err
	}
	window, err := w.Slice(series.Samples)
	if err != nil {
		return DailySummary{}, err
	}
	agg, err := Aggregate(window)
	if err != nil {
		return DailySummary{}, err
	}

	return DailySummary{
		CityID:      series.CityID,
		City:        series.Label(),
		MinTemp:     agg.MinTemp,
		MaxTemp:     agg.MaxTemp,
		Humidity:    agg.Humidity,
		WindSpeed:   agg.WindSpeed,
		ConditionID: agg.ConditionID,
		Description: agg.Description,
		DetailsURL:  DetailsURL(series.CityID),
		Units:       units,
	}, nil
}

// tally counts occurrences while remembering first-seen order.
type tally struct {
	keys   []string
	counts map[string]int
}

func (t *tally) add(key string) {
	if t.counts == nil {
		t.counts = make(map[string]int)
	}
	if _, ok := t.counts[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.counts[key]++
}

// mode returns the most frequent key; among equal counts the earliest wins.
func (t *tally) mode() string {
	best, bestCount := "", 0
	for _, k := range t.keys {
		if c := t.counts[k]; c > bestCount {
			best, bestCount = k, c
		}
	}
	return best
}
