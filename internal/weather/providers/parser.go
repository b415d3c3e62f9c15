package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/liondevhq/weather-tomorrow/internal/weather"
)

// OpenWeatherParser decodes /data/2.5/forecast payloads.
//
// City fields and the list itself are required for the whole series. Each
// sample is decoded on its own; fields it lacks are recorded on the sample
// so that only samples inside the selected window can fail a city.
type OpenWeatherParser struct{}

type owmForecast struct {
	City *struct {
		ID      *int64  `json:"id"`
		Name    *string `json:"name"`
		Country *string `json:"country"`
	} `json:"city"`
	List *[]json.RawMessage `json:"list"`
}

type owmSample struct {
	Main *struct {
		TempMin  *float64 `json:"temp_min"`
		TempMax  *float64 `json:"temp_max"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		ID          *conditionID `json:"id"`
		Description *string      `json:"description"`
	} `json:"weather"`
	Wind *struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
}

// conditionID accepts the upstream numeric id as well as a quoted one.
type conditionID string

func (c *conditionID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*c = conditionID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*c = conditionID(s)
	return nil
}

func (OpenWeatherParser) Parse(payload []byte) (weather.ForecastSeries, error) {
	var doc owmForecast
	if err := json.Unmarshal(payload, &doc); err != nil {
		return weather.ForecastSeries{}, fmt.Errorf("%w: %v", weather.ErrMalformedForecastData, err)
	}

	var missing []string
	if doc.City == nil {
		missing = append(missing, "city")
	} else {
		if doc.City.ID == nil {
			missing = append(missing, "city.id")
		}
		if doc.City.Name == nil {
			missing = append(missing, "city.name")
		}
		if doc.City.Country == nil {
			missing = append(missing, "city.country")
		}
	}
	if doc.List == nil {
		missing = append(missing, "list")
	}
	if len(missing) > 0 {
		return weather.ForecastSeries{}, fmt.Errorf("%w: missing %s",
			weather.ErrMalformedForecastData, strings.Join(missing, ", "))
	}

	samples := make([]weather.ForecastSample, 0, len(*doc.List))
	for _, raw := range *doc.List {
		samples = append(samples, parseSample(raw))
	}

	return weather.ForecastSeries{
		CityID:   *doc.City.ID,
		CityName: *doc.City.Name,
		Country:  *doc.City.Country,
		Samples:  samples,
	}, nil
}

func parseSample(raw json.RawMessage) weather.ForecastSample {
	var in owmSample
	if err := json.Unmarshal(raw, &in); err != nil {
		return weather.ForecastSample{MissingFields: []string{"sample (" + err.Error() + ")"}}
	}

	var out weather.ForecastSample
	miss := func(field string) { out.MissingFields = append(out.MissingFields, field) }

	if in.Main == nil {
		miss("main")
	} else {
		setFloat(&out.TempMin, in.Main.TempMin, "main.temp_min", miss)
		setFloat(&out.TempMax, in.Main.TempMax, "main.temp_max", miss)
		setFloat(&out.HumidityPct, in.Main.Humidity, "main.humidity", miss)
	}

	if len(in.Weather) == 0 {
		miss("weather[0]")
	} else {
		w := in.Weather[0]
		if w.ID == nil {
			miss("weather[0].id")
		} else {
			out.ConditionID = string(*w.ID)
		}
		if w.Description == nil {
			miss("weather[0].description")
		} else {
			out.Description = *w.Description
		}
	}

	if in.Wind == nil {
		miss("wind")
	} else {
		setFloat(&out.WindSpeedMS, in.Wind.Speed, "wind.speed", miss)
	}

	return out
}

func setFloat(dst *float64, v *float64, field string, miss func(string)) {
	if v == nil {
		miss(field)
		return
	}
	*dst = *v
}

var _ weather.SeriesParser = OpenWeatherParser{}
