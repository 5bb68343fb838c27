package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
)

func TestNormalizePathHidesThreadIDs(t *testing.T) {
	cases := [][2]string{
		{"/v1/threads/abc/messages", "/v1/threads/{thread_id}/messages"},
		{"/v1/threads/abc", "/v1/threads/{thread_id}"},
		{"/v1/retrieve", "/v1/retrieve"},
	}
	for _, tc := range cases {
		if got := normalizePath(tc[0]); got != tc[1] {
			t.Fatalf("normalizePath(%q): expected %q, got %q", tc[0], tc[1], got)
		}
	}
}

func TestMiddlewareCountsRequests(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/threads/t1/memory", nil))

	got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodGet, "/v1/threads/{thread_id}/memory", "418"))
	if got != 1 {
		t.Fatalf("expected one counted request, got %f", got)
	}
}

func TestRecordRetrievalAndAnswer(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.RecordRetrieval("retrieve", domain.RetrieveResult{
		Intent:     domain.IntentSectionSummary,
		Degraded:   domain.DegradedFlags{Semantic: true},
		Candidates: []domain.ReferenceCandidate{{Class: domain.ClassExplicitNumeric}},
	}, time.Millisecond)
	m.RecordAnswer(domain.Answer{NotFound: true, Intent: domain.IntentGeneralQA}, time.Millisecond)
	m.RecordAnswer(domain.Answer{Intent: domain.IntentCountVerses}, time.Millisecond)

	if got := testutil.ToFloat64(m.retrievalDegraded.WithLabelValues("api", "semantic")); got != 1 {
		t.Fatalf("expected semantic degradation counted, got %f", got)
	}
	if got := testutil.ToFloat64(m.referenceClassTotal.WithLabelValues("api", string(domain.ClassExplicitNumeric))); got != 1 {
		t.Fatalf("expected reference class counted, got %f", got)
	}
	if got := testutil.ToFloat64(m.notFoundTotal.WithLabelValues("api")); got != 1 {
		t.Fatalf("expected not-found counted, got %f", got)
	}
	if got := testutil.ToFloat64(m.countAnswersTotal.WithLabelValues("api")); got != 1 {
		t.Fatalf("expected count answer counted, got %f", got)
	}
}

func TestResilienceObserver(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.ObserveRetry("qdrant.upsert")
	m.ObserveBreakerState("qdrant.upsert", "open")
	if got := testutil.ToFloat64(m.retriesTotal.WithLabelValues("worker", "qdrant.upsert")); got != 1 {
		t.Fatalf("expected one retry, got %f", got)
	}
	if got := testutil.ToFloat64(m.breakerState.WithLabelValues("worker", "qdrant.upsert")); got != 1 {
		t.Fatalf("expected open breaker gauge, got %f", got)
	}
	m.ObserveBreakerState("qdrant.upsert", "closed")
	if got := testutil.ToFloat64(m.breakerState.WithLabelValues("worker", "qdrant.upsert")); got != 0 {
		t.Fatalf("expected closed breaker gauge, got %f", got)
	}
}

func TestWorkerMetricsExposeReindex(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.StartReindex()
	m.FinishReindex(42, time.Second, nil)
	m.ObserveQueueLag(-time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "granth_worker_chunks_indexed_total") || !strings.Contains(body, `status="success"`) {
		t.Fatalf("unexpected metrics output:\n%s", body)
	}
}
