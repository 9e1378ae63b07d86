package cities

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	calls int64
	fetch func(ctx context.Context, q FeedQuery) ([]CityRow, error)
}

func (d *fakeDirectory) FetchPage(ctx context.Context, q FeedQuery) ([]CityRow, error) {
	atomic.AddInt64(&d.calls, 1)
	return d.fetch(ctx, q)
}

func (d *fakeDirectory) callCount() int64 {
	return atomic.LoadInt64(&d.calls)
}

func makePage(prefix string, n int) []CityRow {
	rows := make([]CityRow, n)
	for i := range rows {
		rows[i] = CityRow{
			ID:   fmt.Sprintf("%s-%d", prefix, i+1),
			Name: fmt.Sprintf("%s City %d", prefix, i+1),
		}
	}
	return rows
}

func waitForStatus(t *testing.T, f *Feed, want Status) FeedState {
	t.Helper()
	var state FeedState
	require.Eventually(t, func() bool {
		state = f.Snapshot()
		return state.Status == want
	}, time.Second, 5*time.Millisecond, "feed never reached status %q", want)
	return state
}

func TestFeedRefreshLoadsFirstPage(t *testing.T) {
	dir := &fakeDirectory{fetch: func(ctx context.Context, q FeedQuery) ([]CityRow, error) {
		return makePage("a", q.PageSize), nil
	}}
	f := NewFeed(dir, nil, 2)

	require.Equal(t, StatusIdle, f.Snapshot().Status)

	f.Refresh(context.Background())
	state := waitForStatus(t, f, StatusMoreAvailable)

	assert.Len(t, state.Rows, 2)
	assert.True(t, state.HasMore)
	assert.False(t, state.IsLoading)
	assert.Empty(t, state.LastError)
}

func TestFeedLoadMoreAppends(t *testing.T) {
	dir := &fakeDirectory{fetch: func(ctx context.Context, q FeedQuery) ([]CityRow, error) {
		return makePage(fmt.Sprintf("p%d", q.PageOffset), q.PageSize), nil
	}}
	f := NewFeed(dir, nil, 2)

	f.Refresh(context.Background())
	waitForStatus(t, f, StatusMoreAvailable)

	f.LoadMore(context.Background())
	var state FeedState
	require.Eventually(t, func() bool {
		state = f.Snapshot()
		return len(state.Rows) == 4 && !state.IsLoading
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "p0-1", state.Rows[0].ID)
	assert.Equal(t, "p2-1", state.Rows[2].ID)
}

func TestFeedExhaustedOnShortPage(t *testing.T) {
	dir := &fakeDirectory{fetch: func(ctx context.Context, q FeedQuery) ([]CityRow, error) {
		return makePage("a", 2), nil // fewer than the page size of 3
	}}
	f := NewFeed(dir, nil, 3)

	f.Refresh(context.Background())
	state := waitForStatus(t, f, StatusExhausted)

	assert.False(t, state.HasMore)
	require.Equal(t, int64(1), dir.callCount())

	// LoadMore on an exhausted feed issues no request.
	f.LoadMore(context.Background())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), dir.callCount())
	assert.Equal(t, StatusExhausted, f.Snapshot().Status)
}

func TestFeedLoadMoreNoOpWhileLoading(t *testing.T) {
	release := make(chan struct{})
	dir := &fakeDirectory{fetch: func(ctx context.Context, q FeedQuery) ([]CityRow, error) {
		<-release
		return makePage("a", q.PageSize), nil
	}}
	f := NewFeed(dir, nil, 2)

	f.Refresh(context.Background())
	require.Eventually(t, func() bool { return f.Snapshot().IsLoading }, time.Second, time.Millisecond)

	f.LoadMore(context.Background())
	f.LoadMore(context.Background())
	close(release)

	waitForStatus(t, f, StatusMoreAvailable)
	assert.Equal(t, int64(1), dir.callCount())
}

func TestFeedResetDiscardsStaleLoadMore(t *testing.T) {
	blockLoadMore := make(chan struct{})
	loadMoreDone := make(chan struct{})
	dir := &fakeDirectory{fetch: func(ctx context.Context, q FeedQuery) ([]CityRow, error) {
		switch {
		case q.SearchTerm == "Lon":
			return makePage("lon", q.PageSize), nil
		case q.PageOffset > 0:
			<-blockLoadMore
			defer close(loadMoreDone)
			return makePage("stale", q.PageSize), nil
		default:
			return makePage("init", q.PageSize), nil
		}
	}}
	f := NewFeed(dir, nil, 2)

	f.Refresh(context.Background())
	waitForStatus(t, f, StatusMoreAvailable)

	// Start a continuation fetch that will hang...
	f.LoadMore(context.Background())
	require.Eventually(t, func() bool { return f.Snapshot().IsLoading }, time.Second, time.Millisecond)

	// ...then reset via a new search term while it is in flight.
	f.SetSearchTerm(context.Background(), "Lon")
	require.Eventually(t, func() bool {
		state := f.Snapshot()
		return len(state.Rows) == 2 && state.Rows[0].ID == "lon-1"
	}, time.Second, 5*time.Millisecond)

	// Let the stale continuation resolve; its page must be dropped.
	close(blockLoadMore)
	<-loadMoreDone
	time.Sleep(50 * time.Millisecond)

	state := f.Snapshot()
	require.Len(t, state.Rows, 2)
	assert.Equal(t, "lon-1", state.Rows[0].ID)
	assert.Equal(t, "lon-2", state.Rows[1].ID)
}

func TestFeedErrorKeepsRowsAndRefreshRetries(t *testing.T) {
	var failNext atomic.Bool
	dir := &fakeDirectory{fetch: func(ctx context.Context, q FeedQuery) ([]CityRow, error) {
		if failNext.Load() {
			return nil, errors.New("connection refused")
		}
		return makePage("a", q.PageSize), nil
	}}
	f := NewFeed(dir, nil, 2)

	f.Refresh(context.Background())
	waitForStatus(t, f, StatusMoreAvailable)

	failNext.Store(true)
	f.LoadMore(context.Background())
	state := waitForStatus(t, f, StatusError)

	assert.Len(t, state.Rows, 2, "previously loaded rows survive a failed fetch")
	assert.Contains(t, state.LastError, "could not load cities")

	// Refresh from the error state retries a full reset.
	failNext.Store(false)
	f.Refresh(context.Background())
	state = waitForStatus(t, f, StatusMoreAvailable)
	assert.Len(t, state.Rows, 2)
	assert.Empty(t, state.LastError)
}

type fakeEnricher struct {
	temp float64
}

func (e *fakeEnricher) Enrich(ctx context.Context, rows []CityRow) {
	for i := range rows {
		temp := e.temp
		rows[i].CurrentTemp = &temp
	}
}

func TestFeedEnrichmentMergesReactively(t *testing.T) {
	dir := &fakeDirectory{fetch: func(ctx context.Context, q FeedQuery) ([]CityRow, error) {
		return makePage("a", q.PageSize), nil
	}}
	f := NewFeed(dir, &fakeEnricher{temp: 14}, 2)

	f.Refresh(context.Background())
	waitForStatus(t, f, StatusMoreAvailable)

	require.Eventually(t, func() bool {
		state := f.Snapshot()
		return len(state.Rows) == 2 && state.Rows[0].CurrentTemp != nil
	}, time.Second, 5*time.Millisecond)

	state := f.Snapshot()
	assert.Equal(t, 14.0, *state.Rows[0].CurrentTemp)
	assert.Equal(t, "a-1", state.Rows[0].ID, "identity fields untouched by enrichment")
}
