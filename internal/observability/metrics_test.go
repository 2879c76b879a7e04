package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("GET", "/api/status", 200, 3*time.Millisecond)
	RecordFlush("fast", 2*time.Millisecond)
	RecordItemCounts(10, 4, 6)

	if got := testutil.ToFloat64(itemCounts.WithLabelValues("available")); got != 6 {
		t.Fatalf("available gauge = %v, want 6", got)
	}
}

func TestRecordEnqueueCountsReplacements(t *testing.T) {
	before := testutil.ToFloat64(queueReplaced.WithLabelValues("fast", "select"))
	enqBefore := testutil.ToFloat64(queueEnqueued.WithLabelValues("fast", "select"))

	RecordEnqueue("fast", "select", false)
	RecordEnqueue("fast", "select", true)

	if got := testutil.ToFloat64(queueReplaced.WithLabelValues("fast", "select")) - before; got != 1 {
		t.Fatalf("replaced delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(queueEnqueued.WithLabelValues("fast", "select")) - enqBefore; got != 2 {
		t.Fatalf("enqueued delta = %v, want 2", got)
	}
}

func TestRecordOutcomeSplitsAppliedAndSkipped(t *testing.T) {
	applied := testutil.ToFloat64(itemOutcomes.WithLabelValues("add", "applied"))
	skipped := testutil.ToFloat64(itemOutcomes.WithLabelValues("add", "skipped"))

	RecordOutcome("add", true)
	RecordOutcome("add", false)
	RecordOutcome("add", false)

	if got := testutil.ToFloat64(itemOutcomes.WithLabelValues("add", "applied")) - applied; got != 1 {
		t.Fatalf("applied delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(itemOutcomes.WithLabelValues("add", "skipped")) - skipped; got != 2 {
		t.Fatalf("skipped delta = %v, want 2", got)
	}
}

func TestRequestIDKeepsClientValueOrGeneratesOne(t *testing.T) {
	var seen string
	router := mux.NewRouter()
	router.Use(RequestID())
	router.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(RequestIDHeader)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "client-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if seen != "client-123" || rec.Header().Get(RequestIDHeader) != "client-123" {
		t.Fatalf("expected client id kept, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "has space")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got == "" || got == "has space" {
		t.Fatalf("expected generated id, got %q", got)
	}
}

func TestRequestLoggerRecordsRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	router.Use(RequestLogger(nil))
	router.HandleFunc("/api/batches/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/batches/{id}", "404"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/batches/abc", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/batches/{id}", "404")) - before; got != 1 {
		t.Fatalf("request counter delta = %v, want 1", got)
	}
}

func TestHandlerExposesPickerMetrics(t *testing.T) {
	RecordFlush("slow", time.Millisecond)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "picker_queue_batches_flushed_total") {
		t.Fatalf("expected picker metrics in output")
	}
}
