package cities

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

// Directory abstracts the external city-directory collaborator.
type Directory interface {
	FetchPage(ctx context.Context, q FeedQuery) ([]CityRow, error)
}

// SortEncoder encodes a sort column and direction into whatever convention
// the directory understands. The encoding is observed, not documented
// upstream, so it stays pluggable.
type SortEncoder func(column string, dir SortDirection) string

// SignPrefixSortEncoder prefixes the column with a hyphen for descending
// order, the convention the OpenDataSoft records API follows.
func SignPrefixSortEncoder(column string, dir SortDirection) string {
	if dir == SortDesc {
		return "-" + column
	}
	return column
}

const geonamesDataset = "geonames-all-cities-with-a-population-1000"

// OpenDataSoftDirectory queries the OpenDataSoft geonames dataset.
type OpenDataSoftDirectory struct {
	baseURL    string
	httpClient *http.Client
	encodeSort SortEncoder
	circuit    *gobreaker.CircuitBreaker
}

func NewOpenDataSoftDirectory(httpClient *http.Client) *OpenDataSoftDirectory {
	return &OpenDataSoftDirectory{
		baseURL:    "https://public.opendatasoft.com/api/records/1.0/search/",
		httpClient: httpClient,
		encodeSort: SignPrefixSortEncoder,
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "opendatasoft",
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
	}
}

// FetchPage returns one page of city rows in directory order.
func (d *OpenDataSoftDirectory) FetchPage(ctx context.Context, q FeedQuery) ([]CityRow, error) {
	values := url.Values{}
	values.Set("dataset", geonamesDataset)
	values.Set("start", strconv.Itoa(q.PageOffset))
	values.Set("rows", strconv.Itoa(q.PageSize))
	values.Set("facet", "cou_name_en")
	if q.SearchTerm != "" {
		values.Set("q", q.SearchTerm)
	}
	if q.SortColumn != "" {
		values.Set("sort", d.encodeSort(q.SortColumn, q.SortDirection))
	}

	reqURL := fmt.Sprintf("%s?%s", d.baseURL, values.Encode())

	result, err := d.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := d.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("city directory returned status %d", resp.StatusCode)
		}

		var payload directoryPayload
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, err
		}
		return payload, nil
	})
	if err != nil {
		return nil, err
	}

	payload, ok := result.(directoryPayload)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return payload.rows(), nil
}

type directoryPayload struct {
	Records []struct {
		RecordID string `json:"recordid"`
		Fields   *struct {
			Name        string `json:"name"`
			CountryName string `json:"cou_name_en"`
			CountryCode string `json:"country_code"`
			Population  int64  `json:"population"`
			Timezone    string `json:"timezone"`
		} `json:"fields"`
		Geometry *struct {
			// GeoJSON order: [lon, lat]
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"records"`
}

func (p directoryPayload) rows() []CityRow {
	rows := make([]CityRow, 0, len(p.Records))
	for _, rec := range p.Records {
		row := CityRow{ID: rec.RecordID}
		if row.ID == "" {
			row.ID = uuid.NewString()
		}

		if rec.Fields == nil {
			// Degraded record; keep the row renderable.
			row.Name = "Unknown City"
			row.Country = "Unknown Country"
			row.CountryCode = "XX"
			row.Timezone = "Unknown"
			rows = append(rows, row)
			continue
		}

		row.Name = rec.Fields.Name
		row.Country = rec.Fields.CountryName
		row.CountryCode = rec.Fields.CountryCode
		row.Population = rec.Fields.Population
		row.Timezone = rec.Fields.Timezone
		if row.Timezone == "" {
			row.Timezone = "Unknown"
		}
		if rec.Geometry != nil && len(rec.Geometry.Coordinates) >= 2 {
			row.Coordinates = Coordinates{
				Lat: rec.Geometry.Coordinates[1],
				Lon: rec.Geometry.Coordinates[0],
			}
		}
		rows = append(rows, row)
	}
	return rows
}
