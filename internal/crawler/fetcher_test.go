package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pageServer serves canned bodies keyed by page number and records every
// request it sees.
type pageServer struct {
	mu       sync.Mutex
	requests []*http.Request
	pages    map[string]pageResponse
}

type pageResponse struct {
	status int
	body   string
}

func (ps *pageServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		ps.requests = append(ps.requests, r.Clone(context.Background()))
		ps.mu.Unlock()

		page := r.URL.Query().Get("page")
		resp, ok := ps.pages[page]
		if !ok {
			resp = pageResponse{status: http.StatusOK, body: listBody()}
		}
		w.WriteHeader(resp.status)
		fmt.Fprint(w, resp.body)
	}
}

func (ps *pageServer) requestCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.requests)
}

func listBody(ids ...string) string {
	items := ""
	for i, id := range ids {
		if i > 0 {
			items += ","
		}
		items += fmt.Sprintf(`{"jobId":%q,"jobName":"job %s","custName":"co"}`, id, id)
	}
	return `{"data":{"list":[` + items + `]}}`
}

func newTestFetcher(endpoint string) *Fetcher {
	f := New(Config{
		Endpoint:  endpoint,
		UserAgent: "jobwatch-test/0.1",
		Timeout:   2 * time.Second,
		DelayMin:  time.Millisecond,
		DelayMax:  2 * time.Millisecond,
	}, zap.NewNop())
	f.sleep = func(context.Context, time.Duration) {}
	return f
}

func TestFetchAttemptsExactlyPageLimitPages(t *testing.T) {
	t.Parallel()

	ps := &pageServer{pages: map[string]pageResponse{
		"1": {http.StatusOK, listBody("a1", "a2")},
		"2": {http.StatusOK, listBody("b1")},
		"3": {http.StatusOK, listBody("c1", "c2")},
	}}
	srv := httptest.NewServer(ps.handler())
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	got, err := f.Fetch(context.Background(), Query{Keyword: "Go", Area: "6001001000", Pages: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, ps.requestCount())
	require.Len(t, got, 5)
	// Page order, then upstream order within a page.
	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.JobID.String()
	}
	assert.Equal(t, []string{"a1", "a2", "b1", "c1", "c2"}, ids)
}

func TestFetchSkipsFailedPageAndContinues(t *testing.T) {
	t.Parallel()

	ps := &pageServer{pages: map[string]pageResponse{
		"1": {http.StatusOK, listBody("a1")},
		"2": {http.StatusInternalServerError, "upstream exploded"},
		"3": {http.StatusOK, listBody("c1")},
	}}
	srv := httptest.NewServer(ps.handler())
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	got, err := f.Fetch(context.Background(), Query{Keyword: "Go", Pages: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, ps.requestCount())
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].JobID.String())
	assert.Equal(t, "c1", got[1].JobID.String())
}

func TestFetchSkipsUnparsablePage(t *testing.T) {
	t.Parallel()

	ps := &pageServer{pages: map[string]pageResponse{
		"1": {http.StatusOK, "<html>definitely not json</html>"},
		"2": {http.StatusOK, listBody("b1")},
	}}
	srv := httptest.NewServer(ps.handler())
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	got, err := f.Fetch(context.Background(), Query{Keyword: "Go", Pages: 2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].JobID.String())
}

func TestFetchEmptyPageDoesNotShortCircuit(t *testing.T) {
	t.Parallel()

	ps := &pageServer{pages: map[string]pageResponse{
		"1": {http.StatusOK, listBody()},
		"2": {http.StatusOK, listBody("b1")},
		"3": {http.StatusOK, listBody()},
	}}
	srv := httptest.NewServer(ps.handler())
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	got, err := f.Fetch(context.Background(), Query{Keyword: "Go", Pages: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, ps.requestCount(), "empty pages must not stop the crawl")
	require.Len(t, got, 1)
}

func TestFetchBuildsUpstreamParams(t *testing.T) {
	t.Parallel()

	ps := &pageServer{pages: map[string]pageResponse{}}
	srv := httptest.NewServer(ps.handler())
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	_, err := f.Fetch(context.Background(), Query{
		Keyword:    "後端工程師",
		Area:       "6001002000",
		Pages:      1,
		JobCat:     "2007001004",
		SalaryMin:  40000,
		SalaryMax:  80000,
		Experience: "3y",
		RemoteWork: true,
	})
	require.NoError(t, err)
	require.Equal(t, 1, ps.requestCount())

	q := ps.requests[0].URL.Query()
	assert.Equal(t, "後端工程師", q.Get("keyword"))
	assert.Equal(t, "6001002000", q.Get("area"))
	assert.Equal(t, "1", q.Get("page"))
	assert.Equal(t, "2007001004", q.Get("jobcat"))
	assert.Equal(t, "40000", q.Get("s_c"))
	assert.Equal(t, "80000", q.Get("s_d"))
	assert.Equal(t, "3y", q.Get("exp"))
	assert.Equal(t, "1", q.Get("remoteWork"))
	assert.Equal(t, "0", q.Get("ro"))
	assert.Equal(t, "15", q.Get("order"))
}

func TestFetchStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	ps := &pageServer{pages: map[string]pageResponse{}}
	srv := httptest.NewServer(ps.handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher(srv.URL)
	got, err := f.Fetch(ctx, Query{Keyword: "Go", Pages: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, got)
	assert.Zero(t, ps.requestCount())
}

func TestPageErrorClassification(t *testing.T) {
	t.Parallel()

	transient := &PageError{Page: 2, Err: fmt.Errorf("%w: status 503", ErrTransient)}
	assert.ErrorIs(t, transient, ErrTransient)
	assert.NotErrorIs(t, transient, ErrParse)
	assert.Contains(t, transient.Error(), "page 2")

	parse := &PageError{Page: 4, Err: fmt.Errorf("%w: bad token", ErrParse)}
	assert.ErrorIs(t, parse, ErrParse)
}

func TestDelayWithinBounds(t *testing.T) {
	t.Parallel()

	f := New(Config{
		Endpoint: "http://example.invalid",
		DelayMin: time.Second,
		DelayMax: 3 * time.Second,
	}, zap.NewNop())

	for range 200 {
		d := f.delay()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 3*time.Second)
	}
}
