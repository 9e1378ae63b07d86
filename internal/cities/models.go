package cities

// SortDirection for city-directory queries.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sort columns understood by the city directory.
const (
	SortByName       = "name"
	SortByCountry    = "cou_name_en"
	SortByPopulation = "population"
	SortByTimezone   = "timezone"
)

// Coordinates of a city.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CityRow is one row of the city listing. The weather-derived pointer fields
// are filled in asynchronously after the row is first materialized; nil means
// "not yet enriched or enrichment failed", not "known to have no weather".
type CityRow struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Country     string      `json:"country"`
	CountryCode string      `json:"countryCode"`
	Population  int64       `json:"population"`
	Timezone    string      `json:"timezone"`
	Coordinates Coordinates `json:"coordinates"`

	CurrentTemp      *float64 `json:"currentTemp,omitempty"`
	CurrentCondition *string  `json:"currentCondition,omitempty"`
	HighTemp         *float64 `json:"highTemp,omitempty"`
	LowTemp          *float64 `json:"lowTemp,omitempty"`
}

// FeedQuery drives a single city-directory page fetch.
type FeedQuery struct {
	SearchTerm    string
	PageOffset    int
	PageSize      int
	SortColumn    string
	SortDirection SortDirection
}
