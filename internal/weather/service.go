package weather

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// Service orchestrates OpenWeatherMap lookups: current-weather summaries for
// city rows, combined current+forecast detail payloads, and daily forecast
// aggregation.
type Service struct {
	client *Client
}

func NewService(client *Client) *Service {
	return &Service{client: client}
}

// SanitizeCity strips quote characters and surrounding whitespace from a city
// name before it is used in any outbound query.
func SanitizeCity(name string) string {
	name = strings.ReplaceAll(name, "'", "")
	name = strings.ReplaceAll(name, `"`, "")
	return strings.TrimSpace(name)
}

// LocationQuery builds the upstream location query, appending the country
// code as "City,CC" when present.
func LocationQuery(city, country string) string {
	city = SanitizeCity(city)
	if country == "" {
		return city
	}
	return city + "," + country
}

// Summary returns the simplified current-weather view for a city.
func (s *Service) Summary(ctx context.Context, city, country string) (Summary, error) {
	raw, err := s.client.Current(ctx, LocationQuery(city, country))
	if err != nil {
		return Summary{}, err
	}

	var payload struct {
		Main struct {
			Temp    float64 `json:"temp"`
			TempMax float64 `json:"temp_max"`
			TempMin float64 `json:"temp_min"`
		} `json:"main"`
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Temp:     payload.Main.Temp,
		HighTemp: payload.Main.TempMax,
		LowTemp:  payload.Main.TempMin,
	}
	if len(payload.Weather) > 0 {
		summary.Condition = payload.Weather[0].Main
	}
	return summary, nil
}

// Detail fetches the current weather and the forecast concurrently and
// returns both raw payloads. If either fetch fails the whole detail fails;
// the current-weather error takes precedence when both do.
func (s *Service) Detail(ctx context.Context, city, country string) (Detail, error) {
	location := LocationQuery(city, country)

	var (
		wg                      sync.WaitGroup
		current, forecast       json.RawMessage
		currentErr, forecastErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		current, currentErr = s.client.Current(ctx, location)
	}()
	go func() {
		defer wg.Done()
		forecast, forecastErr = s.client.Forecast(ctx, location)
	}()
	wg.Wait()

	if currentErr != nil {
		return Detail{}, currentErr
	}
	if forecastErr != nil {
		return Detail{}, forecastErr
	}

	return Detail{Current: current, Forecast: forecast}, nil
}

// Daily fetches the forecast for a city and buckets it into daily summaries.
func (s *Service) Daily(ctx context.Context, city, country string) ([]DailyForecast, error) {
	raw, err := s.client.Forecast(ctx, LocationQuery(city, country))
	if err != nil {
		return nil, err
	}

	samples, err := samplesFromForecastPayload(raw)
	if err != nil {
		return nil, err
	}
	return Aggregate(samples), nil
}
