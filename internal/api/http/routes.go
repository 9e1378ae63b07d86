package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/weatherdash/weather-lookup/internal/cities"
	"github.com/weatherdash/weather-lookup/internal/store"
	"github.com/weatherdash/weather-lookup/internal/weather"
)

var validate = validator.New()

// Deps bundles everything the HTTP handlers need.
type Deps struct {
	Weather   *weather.Service
	Directory cities.Directory
	Enricher  cities.Enricher
	Cache     *store.Store

	// PageSize is the default city-listing page size.
	PageSize int
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	app.Get("/api/weather-summary", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		summary, err := deps.Weather.Summary(c.UserContext(), loc.City, loc.Country)
		if err != nil {
			return upstreamError(err)
		}
		return c.JSON(summary)
	})

	app.Get("/api/weather-detail", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		detail, err := deps.Weather.Detail(c.UserContext(), loc.City, loc.Country)
		if err != nil {
			return upstreamError(err)
		}
		return c.JSON(detail)
	})

	app.Get("/api/weather-daily", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		days, err := deps.Weather.Daily(c.UserContext(), loc.City, loc.Country)
		if err != nil {
			return upstreamError(err)
		}
		if days == nil {
			days = []weather.DailyForecast{}
		}
		return c.JSON(days)
	})

	app.Get("/api/cities", func(c *fiber.Ctx) error {
		var req citiesQuery
		if err := req.bind(c, deps.PageSize); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rows, err := deps.Directory.FetchPage(c.UserContext(), req.toFeedQuery())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch cities")
		}
		if rows == nil {
			rows = []cities.CityRow{}
		}

		// Enrichment is best effort; rows render with or without weather.
		if req.IncludeWeather && deps.Enricher != nil {
			deps.Enricher.Enrich(c.UserContext(), rows)
		}

		return c.JSON(rows)
	})

	app.Get("/api/weather/:city", func(c *fiber.Ctx) error {
		// Path segments arrive still percent-encoded.
		city, err := url.PathUnescape(c.Params("city"))
		if err != nil {
			city = c.Params("city")
		}

		data, err := deps.Cache.Get(city)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "weather data not found for this city")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	})

	app.Post("/api/weather", func(c *fiber.Ctx) error {
		var body struct {
			CityName string          `json:"cityName"`
			Data     json.RawMessage `json:"data"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.CityName == "" || len(body.Data) == 0 || bytes.Equal(body.Data, []byte("null")) {
			return fiber.NewError(fiber.StatusBadRequest, "city name and weather data are required")
		}

		if err := deps.Cache.Put(body.CityName, body.Data, time.Now()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to cache weather data")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "weather data cached successfully",
		})
	})
}

// upstreamError maps weather-client failures onto HTTP statuses: the
// upstream's own status when we have one, 500 otherwise.
func upstreamError(err error) error {
	var ue *weather.UpstreamError
	if errors.As(err, &ue) {
		return fiber.NewError(ue.Status, "failed to fetch weather data")
	}
	if errors.Is(err, weather.ErrMissingAPIKey) {
		return fiber.NewError(fiber.StatusInternalServerError, "weather API key not configured")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
}

// locationQuery holds query parameters for identifying a city. Country is
// optional; when present it is appended to the outbound query as "City,CC".
type locationQuery struct {
	City    string `validate:"required"`
	Country string
}

func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	var q locationQuery

	q.City = c.Query("city")
	q.Country = c.Query("country")

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

// citiesQuery holds query parameters for the city listing endpoint.
type citiesQuery struct {
	Search         string
	Offset         int    `validate:"gte=0"`
	Limit          int    `validate:"gte=1,lte=100"`
	Sort           string `validate:"required"`
	Order          string `validate:"oneof=asc desc"`
	IncludeWeather bool
}

func (q *citiesQuery) bind(c *fiber.Ctx, defaultLimit int) error {
	var err error
	q.Search = c.Query("search")
	if q.Offset, err = queryIntStrict(c, "offset", 0); err != nil {
		return err
	}
	if q.Limit, err = queryIntStrict(c, "limit", defaultLimit); err != nil {
		return err
	}
	q.Sort = c.Query("sort", cities.SortByName)
	q.Order = c.Query("order", string(cities.SortAsc))
	q.IncludeWeather = c.QueryBool("include_weather", true)
	return nil
}

// queryIntStrict reads an integer query parameter, rejecting non-numeric
// values instead of silently substituting the default.
func queryIntStrict(c *fiber.Ctx, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

func (q citiesQuery) toFeedQuery() cities.FeedQuery {
	return cities.FeedQuery{
		SearchTerm:    q.Search,
		PageOffset:    q.Offset,
		PageSize:      q.Limit,
		SortColumn:    q.Sort,
		SortDirection: cities.SortDirection(q.Order),
	}
}
