package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherdash/weather-lookup/internal/cities"
)

func testRows(n int) []cities.CityRow {
	rows := make([]cities.CityRow, n)
	for i := range rows {
		rows[i] = cities.CityRow{
			ID:          fmt.Sprintf("rec-%d", i+1),
			Name:        fmt.Sprintf("City%d", i+1),
			CountryCode: "GB",
		}
	}
	return rows
}

func TestEnrichBatchBoundaries(t *testing.T) {
	var (
		inFlight  int64
		maxSeen   int64
		completed int64
		mu        sync.Mutex
	)
	startedAfter := make(map[string]int64)

	fetcher := &SummaryFetcher{
		batchSize: 5,
		fetch: func(ctx context.Context, city, country string) (Summary, error) {
			mu.Lock()
			startedAfter[city] = atomic.LoadInt64(&completed)
			mu.Unlock()

			cur := atomic.AddInt64(&inFlight, 1)
			for {
				seen := atomic.LoadInt64(&maxSeen)
				if cur <= seen || atomic.CompareAndSwapInt64(&maxSeen, seen, cur) {
					break
				}
			}
			atomic.AddInt64(&inFlight, -1)
			atomic.AddInt64(&completed, 1)
			return Summary{Temp: 14, Condition: "Clouds", HighTemp: 16, LowTemp: 11}, nil
		},
	}

	rows := testRows(7)
	fetcher.Enrich(context.Background(), rows)

	// Peak concurrency is bounded by the batch size.
	assert.LessOrEqual(t, maxSeen, int64(5))

	// The second batch (rows 6 and 7) starts only after the first five
	// requests have all settled.
	assert.GreaterOrEqual(t, startedAfter["City6"], int64(5))
	assert.GreaterOrEqual(t, startedAfter["City7"], int64(5))
	assert.Equal(t, int64(7), completed)
}

func TestEnrichSingleFailureDoesNotAbort(t *testing.T) {
	fetcher := &SummaryFetcher{
		batchSize: 5,
		fetch: func(ctx context.Context, city, country string) (Summary, error) {
			if city == "City3" {
				return Summary{}, errors.New("upstream returned status 404")
			}
			return Summary{Temp: 14, Condition: "Clouds", HighTemp: 16, LowTemp: 11}, nil
		},
	}

	rows := testRows(7)
	fetcher.Enrich(context.Background(), rows)

	for i, row := range rows {
		if i == 2 {
			assert.Nil(t, row.CurrentTemp, "failed row keeps weather fields absent")
			assert.Nil(t, row.CurrentCondition)
			assert.Nil(t, row.HighTemp)
			assert.Nil(t, row.LowTemp)
			continue
		}
		require.NotNil(t, row.CurrentTemp, "row %d", i)
		assert.Equal(t, 14.0, *row.CurrentTemp)
		assert.Equal(t, "Clouds", *row.CurrentCondition)
		assert.Equal(t, 16.0, *row.HighTemp)
		assert.Equal(t, 11.0, *row.LowTemp)
	}
}

func TestEnrichLeavesIdentityFieldsAlone(t *testing.T) {
	fetcher := &SummaryFetcher{
		batchSize: 2,
		fetch: func(ctx context.Context, city, country string) (Summary, error) {
			return Summary{Temp: 1}, nil
		},
	}

	rows := testRows(3)
	fetcher.Enrich(context.Background(), rows)

	for i, row := range rows {
		assert.Equal(t, fmt.Sprintf("rec-%d", i+1), row.ID)
		assert.Equal(t, fmt.Sprintf("City%d", i+1), row.Name)
		assert.Equal(t, "GB", row.CountryCode)
	}
}
