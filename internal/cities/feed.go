package cities

import (
	"context"
	"fmt"
	"sync"
)

// Status of the feed state machine.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusLoading       Status = "loading"
	StatusError         Status = "error"
	StatusMoreAvailable Status = "loaded"
	StatusExhausted     Status = "exhausted"
)

// FeedState is a point-in-time snapshot of the feed.
type FeedState struct {
	Rows      []CityRow
	Status    Status
	IsLoading bool
	LastError string
	HasMore   bool
}

// Enricher fills weather fields on city rows, best effort.
type Enricher interface {
	Enrich(ctx context.Context, rows []CityRow)
}

// Feed maintains the paginated, searchable, sortable city list: it decides
// when to fetch the next page, resets on search/sort changes, and detects
// end-of-data.
//
// Every initiated fetch carries a generation number. A reset bumps the
// generation, so a continuation that resolves after a reset started is
// recognized as stale and discarded; in-flight requests are never aborted in
// transit. Concurrent triggers are coalesced by this guard, not by blocking:
// at most one outstanding fetch is actionable at a time.
//
// Freshly fetched pages are handed to the enricher fire-and-forget; rows are
// visible in snapshots before their weather fields arrive and the fields are
// merged in as lookups complete.
type Feed struct {
	mu       sync.Mutex
	fetcher  Directory
	enricher Enricher

	gen      uint64
	resetGen uint64

	query   FeedQuery
	rows    []CityRow
	status  Status
	lastErr string
	hasMore bool
	loading bool
}

// NewFeed creates an idle feed. enricher may be nil.
func NewFeed(fetcher Directory, enricher Enricher, pageSize int) *Feed {
	return &Feed{
		fetcher:  fetcher,
		enricher: enricher,
		query: FeedQuery{
			PageSize:      pageSize,
			SortColumn:    SortByName,
			SortDirection: SortAsc,
		},
		status:  StatusIdle,
		hasMore: true,
	}
}

// Snapshot returns a copy of the current feed state.
func (f *Feed) Snapshot() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows := make([]CityRow, len(f.rows))
	copy(rows, f.rows)
	return FeedState{
		Rows:      rows,
		Status:    f.status,
		IsLoading: f.loading,
		LastError: f.lastErr,
		HasMore:   f.hasMore,
	}
}

// SetSearchTerm changes the search term and triggers a reset fetch.
func (f *Feed) SetSearchTerm(ctx context.Context, term string) {
	f.mu.Lock()
	f.query.SearchTerm = term
	f.resetLocked(ctx)
	f.mu.Unlock()
}

// SetSort changes the sort key and triggers a reset fetch.
func (f *Feed) SetSort(ctx context.Context, column string, dir SortDirection) {
	f.mu.Lock()
	f.query.SortColumn = column
	f.query.SortDirection = dir
	f.resetLocked(ctx)
	f.mu.Unlock()
}

// Refresh re-runs the current query from the first page. From the error
// state this is the retry affordance.
func (f *Feed) Refresh(ctx context.Context) {
	f.mu.Lock()
	f.resetLocked(ctx)
	f.mu.Unlock()
}

// LoadMore fetches the next page and appends it. It is a no-op while a fetch
// is in flight or when the feed is exhausted.
func (f *Feed) LoadMore(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.loading || !f.hasMore {
		return
	}

	f.gen++
	f.loading = true
	f.status = StatusLoading
	q := f.query
	q.PageOffset = len(f.rows)
	go f.fetch(ctx, f.gen, q, false)
}

// resetLocked supersedes any in-flight fetch and starts page zero of the
// current query. Caller holds f.mu.
func (f *Feed) resetLocked(ctx context.Context) {
	f.gen++
	f.resetGen++
	f.loading = true
	f.status = StatusLoading
	f.query.PageOffset = 0
	q := f.query
	go f.fetch(ctx, f.gen, q, true)
}

func (f *Feed) fetch(ctx context.Context, gen uint64, q FeedQuery, replace bool) {
	rows, err := f.fetcher.FetchPage(ctx, q)
	f.apply(ctx, gen, q, rows, err, replace)
}

func (f *Feed) apply(ctx context.Context, gen uint64, q FeedQuery, page []CityRow, err error, replace bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.gen {
		// Stale result from a superseded fetch.
		return
	}

	f.loading = false

	if err != nil {
		// Previously loaded rows stay on screen.
		f.status = StatusError
		f.lastErr = fmt.Sprintf("could not load cities: %v", err)
		return
	}

	f.lastErr = ""

	start := len(f.rows)
	if replace {
		start = 0
		f.rows = page
	} else {
		f.rows = append(f.rows, page...)
	}

	f.hasMore = len(page) >= q.PageSize
	if f.hasMore {
		f.status = StatusMoreAvailable
	} else {
		f.status = StatusExhausted
	}

	if f.enricher != nil && len(page) > 0 {
		pageCopy := make([]CityRow, len(page))
		copy(pageCopy, page)
		go f.enrichPage(ctx, f.resetGen, start, pageCopy)
	}
}

// enrichPage runs outside the lock and merges weather fields back in once
// the batch settles. Appending more pages keeps earlier indices valid, so
// only a reset invalidates pending enrichment.
func (f *Feed) enrichPage(ctx context.Context, resetGen uint64, start int, page []CityRow) {
	f.enricher.Enrich(ctx, page)

	f.mu.Lock()
	defer f.mu.Unlock()

	if resetGen != f.resetGen {
		return
	}
	for i := range page {
		idx := start + i
		if idx >= len(f.rows) || f.rows[idx].ID != page[i].ID {
			continue
		}
		f.rows[idx].CurrentTemp = page[i].CurrentTemp
		f.rows[idx].CurrentCondition = page[i].CurrentCondition
		f.rows[idx].HighTemp = page[i].HighTemp
		f.rows[idx].LowTemp = page[i].LowTemp
	}
}
