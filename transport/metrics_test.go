package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCountRequestsAndRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	tr := newTestTransport(t, srv.URL, Credentials{}, Options{
		Retry:   RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2},
		Metrics: reg,
	})

	if _, err := tr.Execute(context.Background(), http.MethodGet, "api/v1/query", nil, nil, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := testutil.ToFloat64(tr.metrics.retries); got != 1 {
		t.Fatalf("retries counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(tr.metrics.requests.WithLabelValues("api/v1/query", "200")); got != 1 {
		t.Fatalf("success counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(tr.metrics.requests.WithLabelValues("api/v1/query", "502")); got != 1 {
		t.Fatalf("failure counter = %v, want 1", got)
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *clientMetrics
	m.observe("api/v1/query", 200, time.Millisecond)
	m.retry()
	m.limiterWait(time.Millisecond)
}
