package weather

import (
	"context"
	"sync"

	"github.com/weatherdash/weather-lookup/internal/cities"
)

// DefaultEnrichBatchSize bounds concurrent outbound summary requests.
const DefaultEnrichBatchSize = 5

type summaryFn func(ctx context.Context, city, country string) (Summary, error)

// SummaryFetcher attaches best-effort current-weather fields to city rows.
// Rows are processed in fixed-size batches; within a batch one summary
// request is issued per row concurrently, and a batch fully settles before
// the next one starts. A failed lookup leaves that row's weather fields
// absent and is never surfaced to the caller.
type SummaryFetcher struct {
	batchSize int
	fetch     summaryFn
}

func NewSummaryFetcher(svc *Service, batchSize int) *SummaryFetcher {
	if batchSize <= 0 {
		batchSize = DefaultEnrichBatchSize
	}
	return &SummaryFetcher{batchSize: batchSize, fetch: svc.Summary}
}

// Enrich mutates rows in place. Identity fields are never touched.
func (f *SummaryFetcher) Enrich(ctx context.Context, rows []cities.CityRow) {
	type outcome struct {
		summary Summary
		err     error
	}

	for start := 0; start < len(rows); start += f.batchSize {
		end := start + f.batchSize
		if end > len(rows) {
			end = len(rows)
		}

		outcomes := make([]outcome, end-start)
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				sum, err := f.fetch(ctx, rows[i].Name, rows[i].CountryCode)
				outcomes[i-start] = outcome{summary: sum, err: err}
			}()
		}
		wg.Wait()

		for i := range outcomes {
			// The error variant is discarded on purpose; enrichment either
			// fills the fields or leaves them absent.
			if outcomes[i].err != nil {
				continue
			}
			applySummary(&rows[start+i], outcomes[i].summary)
		}
	}
}

func applySummary(row *cities.CityRow, s Summary) {
	temp, high, low, cond := s.Temp, s.HighTemp, s.LowTemp, s.Condition
	row.CurrentTemp = &temp
	row.CurrentCondition = &cond
	row.HighTemp = &high
	row.LowTemp = &low
}
