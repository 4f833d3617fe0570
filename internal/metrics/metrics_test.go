package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	fetchPagesTotal = nil
	listingsScrapedTotal = nil
	taskRunsTotal = nil

	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if fetchPagesTotal == nil || listingsScrapedTotal == nil || taskRunsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	ObserveFetchPage("ok")
	if val := testutil.ToFloat64(fetchPagesTotal); val != 1 {
		t.Errorf("Expected fetchPagesTotal to be 1, got %f", val)
	}
}

func TestObserversAreNoOpsBeforeInit(t *testing.T) {
	saved := fetchPagesTotal
	savedScraped := listingsScrapedTotal
	savedPurged := jobsPurgedTotal
	savedRuns := taskRunsTotal
	savedHTTP := httpRequestsTotal
	defer func() {
		fetchPagesTotal = saved
		listingsScrapedTotal = savedScraped
		jobsPurgedTotal = savedPurged
		taskRunsTotal = savedRuns
		httpRequestsTotal = savedHTTP
	}()

	fetchPagesTotal = nil
	listingsScrapedTotal = nil
	jobsPurgedTotal = nil
	taskRunsTotal = nil
	httpRequestsTotal = nil

	// None of these may panic without Init.
	ObserveFetchPage("ok")
	ObserveIngest(10, 9)
	ObservePurge(3)
	ObserveTaskRun("sweep", "ok", time.Second)
	ObserveHTTPRequest("GET", "/api/search", 200, time.Millisecond)
}
