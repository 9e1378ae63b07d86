package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"
)

// Client talks to the OpenWeatherMap current-weather and 5-day forecast
// endpoints. The API key never leaves this process; callers only see the
// resulting payloads.
type Client struct {
	apiKey      string
	currentURL  string
	forecastURL string
	httpClient  *http.Client
	currentCB   *gobreaker.CircuitBreaker
	forecastCB  *gobreaker.CircuitBreaker
}

func NewClient(httpClient *http.Client, apiKey string) *Client {
	return &Client{
		apiKey:      apiKey,
		currentURL:  "https://api.openweathermap.org/data/2.5/weather",
		forecastURL: "https://api.openweathermap.org/data/2.5/forecast",
		httpClient:  httpClient,
		currentCB:   newBreaker("openweather-current"),
		forecastCB:  newBreaker("openweather-forecast"),
	}
}

// Current fetches the raw current-weather payload for a "City" or "City,CC"
// location query, in metric units.
func (c *Client) Current(ctx context.Context, location string) (json.RawMessage, error) {
	return c.fetch(ctx, c.currentURL, c.currentCB, location)
}

// Forecast fetches the raw 5-day/3-hour forecast payload.
func (c *Client) Forecast(ctx context.Context, location string) (json.RawMessage, error) {
	return c.fetch(ctx, c.forecastURL, c.forecastCB, location)
}

func (c *Client) fetch(ctx context.Context, baseURL string, cb *gobreaker.CircuitBreaker, location string) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", location)
		values.Set("units", "metric")
		values.Set("appid", c.apiKey)

		u := fmt.Sprintf("%s?%s", baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	return doRequestWithBreaker(ctx, c.httpClient, cb, buildRequest)
}
