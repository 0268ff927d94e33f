package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMustRegisterIsIdempotent(t *testing.T) {
	MustRegister()
	MustRegister()

	before := testutil.ToFloat64(entryOperations.WithLabelValues("create", ResultOK))
	RecordEntryOperation("create", ResultOK)
	if got := testutil.ToFloat64(entryOperations.WithLabelValues("create", ResultOK)); got != before+1 {
		t.Fatalf("entry operations = %v, want %v", got, before+1)
	}
}

func TestObserveHTTPRequestFallsBackToUnmatched(t *testing.T) {
	MustRegister()

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404"))
	ObserveHTTPRequest("GET", "", 404, 3*time.Millisecond)
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404")); got != before+1 {
		t.Fatalf("requests = %v, want %v", got, before+1)
	}
}

func TestRecordersCoverLimiterAndBackup(t *testing.T) {
	MustRegister()

	limited := testutil.ToFloat64(rateLimited)
	RecordRateLimited()
	if got := testutil.ToFloat64(rateLimited); got != limited+1 {
		t.Fatalf("rate limited = %v", got)
	}

	RecordBackup("")
	if got := testutil.ToFloat64(backupRuns.WithLabelValues("unknown")); got < 1 {
		t.Fatalf("backup runs = %v", got)
	}
}
