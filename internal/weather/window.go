package weather

import (
	"fmt"
	"time"
)

const (
	// SampleInterval is the spacing of upstream forecast samples.
	SampleInterval = 3 * time.Hour
	// SamplesPerDay is the number of samples covering 24 hours.
	SamplesPerDay = int(24 * time.Hour / SampleInterval)
)

// Window is an inclusive [Start, End] range of sample indexes.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of samples the window covers.
func (w Window) Len() int {
	return w.End - w.Start + 1
}

// tomorrowWindows is indexed by hour/3. Sample 0 is the bucket after the
// current one, so the later the hour the sooner tomorrow starts.
var tomorrowWindows = [SamplesPerDay]Window{
	{Start: 8, End: 15}, // 00-02
	{Start: 7, End: 14}, // 03-05
	{Start: 6, End: 13}, // 06-08
	{Start: 5, End: 12}, // 09-11
	{Start: 4, End: 11}, // 12-14
	{Start: 3, End: 10}, // 15-17
	{Start: 2, End: 9},  // 18-20
	{Start: 1, End: 8},  // 21-23
}

// MinSamples is the series length every window fits in.
const MinSamples = 16

// SelectWindow maps a wall-clock hour (0-23) to the samples representing
// tomorrow.
func SelectWindow(referenceHour int) (Window, error) {
	if referenceHour < 0 || referenceHour > 23 {
		return Window{}, fmt.Errorf("%w: %d", ErrInvalidReferenceHour, referenceHour)
	}
	return tomorrowWindows[referenceHour/3], nil
}

// Slice returns the samples inside the window. It fails with
// ErrInsufficientSamples rather than reading past the end of the series.
func (w Window) Slice(samples []ForecastSample) ([]ForecastSample, error) {
	if w.Start < 0 || w.End < w.Start {
		return nil, fmt.Errorf("%w: window [%d,%d]", ErrAggregationInputEmpty, w.Start, w.End)
	}
	if len(samples) < w.End+1 {
		return nil, fmt.Errorf("%w: window [%d,%d] needs %d samples, got %d",
			ErrInsufficientSamples, w.Start, w.End, w.End+1, len(samples))
	}
	return samples[w.Start : w.End+1], nil
}

// ReferenceHour returns the hour used to pick tomorrow's window. It is the
// local hour of t, not the forecast city's.
func ReferenceHour(t time.Time) int {
	return t.Hour()
}
