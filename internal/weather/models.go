package weather

import "encoding/json"

// Summary is the lightweight current-weather view used to enrich city rows.
type Summary struct {
	Temp      float64 `json:"temp"`
	Condition string  `json:"condition"`
	HighTemp  float64 `json:"highTemp"`
	LowTemp   float64 `json:"lowTemp"`
}

// Detail bundles the raw upstream payloads for a city detail view.
// The payloads are passed through untouched; clients own their shape.
type Detail struct {
	Current  json.RawMessage `json:"current"`
	Forecast json.RawMessage `json:"forecast"`
}

// RawForecastSample is one upstream forecast data point, typically one per
// three hours. TimestampText carries the upstream's own "date time" text and
// is local to the forecast's calendar.
type RawForecastSample struct {
	TimestampText      string  `json:"timestampText"`
	Temp               float64 `json:"temp"`
	Humidity           float64 `json:"humidity"`
	PrecipProbability  float64 `json:"precipitationProbability"`
	WeatherMain        string  `json:"weatherMain"`
	WeatherDescription string  `json:"weatherDescription"`
}

// DailyForecast is a derived per-day bucket of forecast samples. It is never
// persisted.
type DailyForecast struct {
	Date               string  `json:"date"`
	DayLabel           string  `json:"day"`
	TempMin            float64 `json:"tempMin"`
	TempMax            float64 `json:"tempMax"`
	WeatherMain        string  `json:"weatherMain"`
	WeatherDescription string  `json:"weatherDescription"`
	PrecipProbability  float64 `json:"precipitationProbability"`
	Humidity           int     `json:"humidity"`
}

// samplesFromForecastPayload extracts the per-interval samples from a raw
// OpenWeatherMap 5-day/3-hour forecast payload.
func samplesFromForecastPayload(raw []byte) ([]RawForecastSample, error) {
	var payload struct {
		List []struct {
			DtTxt string `json:"dt_txt"`
			Main  struct {
				Temp     float64 `json:"temp"`
				Humidity float64 `json:"humidity"`
			} `json:"main"`
			Pop     float64 `json:"pop"`
			Weather []struct {
				Main        string `json:"main"`
				Description string `json:"description"`
			} `json:"weather"`
		} `json:"list"`
	}

	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}

	samples := make([]RawForecastSample, 0, len(payload.List))
	for _, item := range payload.List {
		s := RawForecastSample{
			TimestampText:     item.DtTxt,
			Temp:              item.Main.Temp,
			Humidity:          item.Main.Humidity,
			PrecipProbability: item.Pop,
		}
		if len(item.Weather) > 0 {
			s.WeatherMain = item.Weather[0].Main
			s.WeatherDescription = item.Weather[0].Description
		}
		samples = append(samples, s)
	}
	return samples, nil
}
