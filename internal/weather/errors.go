package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport covers network failures, timeouts and non-2xx responses.
	ErrTransport = errors.New("transport error")
	// ErrMalformedForecastData means the payload is missing required fields.
	ErrMalformedForecastData = errors.New("malformed forecast data")
	// ErrInsufficientSamples means the series ends before the selected window does.
	ErrInsufficientSamples = errors.New("insufficient samples")
	// ErrAggregationInputEmpty means there was nothing to aggregate.
	ErrAggregationInputEmpty = errors.New("aggregation input empty")
	// ErrInvalidReferenceHour is returned for hours outside 0-23.
	ErrInvalidReferenceHour = errors.New("invalid reference hour")

	// ErrNotFound is returned when a city or run does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for rejected user input.
	ErrInvalidInput = errors.New("invalid input")
)

var errorKinds = []struct {
	err  error
	name string
}{
	{ErrTransport, "transport_error"},
	{ErrMalformedForecastData, "malformed_forecast_data"},
	{ErrInsufficientSamples, "insufficient_samples"},
	{ErrAggregationInputEmpty, "aggregation_input_empty"},
	{ErrInvalidReferenceHour, "invalid_reference_hour"},
}

// CityError tags a per-city failure with its kind. It unwraps to both the
// kind sentinel and the underlying cause.
type CityError struct {
	Location Location
	Kind     error
	Err      error
}

func (e *CityError) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Location.Key(), e.Kind)
	case errors.Is(e.Err, e.Kind):
		return fmt.Sprintf("%s: %v", e.Location.Key(), e.Err)
	default:
		return fmt.Sprintf("%s: %v: %v", e.Location.Key(), e.Kind, e.Err)
	}
}

func (e *CityError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// classify wraps err into a CityError. Errors already carrying a taxonomy
// kind keep it; anything else is attributed to fallback.
func classify(loc Location, err error, fallback error) *CityError {
	var ce *CityError
	if errors.As(err, &ce) {
		return ce
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return &CityError{Location: loc, Kind: k.err, Err: err}
		}
	}
	return &CityError{Location: loc, Kind: fallback, Err: err}
}

// ErrorKind returns a stable machine-readable name for err's taxonomy kind,
// or "unknown".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "unknown"
}
