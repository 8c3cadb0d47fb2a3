package query

import (
	"errors"
	"testing"
	"time"

	"github.com/xscopehub/promtools/apierr"
)

func TestNormalize(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	t.Run("string input", func(t *testing.T) {
		queries, err := Normalize([]any{"up", "rate(http_requests_total[5m])"})
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		if len(queries) != 2 {
			t.Fatalf("got %d queries, want 2", len(queries))
		}
		if queries[0].Text != "up" || queries[0].IsRange() {
			t.Fatalf("unexpected first query: %+v", queries[0])
		}
	})

	t.Run("query and pointer pass through", func(t *testing.T) {
		q := Query{Name: "cpu", Text: "up", Start: start, End: end, Step: "1m"}
		queries, err := Normalize([]any{q, &q})
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		for i, got := range queries {
			if got.Name != "cpu" || !got.IsRange() {
				t.Fatalf("query %d not preserved: %+v", i, got)
			}
		}
	})

	t.Run("map input", func(t *testing.T) {
		queries, err := Normalize([]any{map[string]any{
			"name":  "latency",
			"query": "histogram_quantile(0.99, rate(req_bucket[5m]))",
			"start": start,
			"end":   end.Format(time.RFC3339),
			"step":  "30s",
		}})
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		q := queries[0]
		if q.Name != "latency" || !q.IsRange() || q.Step != "30s" {
			t.Fatalf("unexpected query: %+v", q)
		}
		if !q.End.Equal(end) {
			t.Fatalf("End = %v, want %v", q.End, end)
		}
	})

	t.Run("range without step fails", func(t *testing.T) {
		_, err := Normalize([]any{Query{Text: "up", Start: start, End: end}})
		var verr *apierr.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("got %v, want ValidationError", err)
		}
		if verr.Query != "up" {
			t.Fatalf("ValidationError.Query = %q, want %q", verr.Query, "up")
		}
	})

	t.Run("map without query key fails", func(t *testing.T) {
		_, err := Normalize([]any{map[string]any{"name": "broken"}})
		var verr *apierr.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("got %v, want ValidationError", err)
		}
	})

	t.Run("unsupported type fails", func(t *testing.T) {
		_, err := Normalize([]any{42})
		var uerr *apierr.UnsupportedInputError
		if !errors.As(err, &uerr) {
			t.Fatalf("got %v, want UnsupportedInputError", err)
		}
		if uerr.Type != "int" {
			t.Fatalf("UnsupportedInputError.Type = %q, want %q", uerr.Type, "int")
		}
	})

	t.Run("first invalid input aborts the batch", func(t *testing.T) {
		queries, err := Normalize([]any{"up", 42, "sum(up)"})
		if err == nil {
			t.Fatal("expected error")
		}
		if queries != nil {
			t.Fatalf("got %d queries, want nil on abort", len(queries))
		}
	})

	t.Run("bad timestamp string fails", func(t *testing.T) {
		_, err := Normalize([]any{map[string]any{
			"query": "up",
			"start": "yesterday",
		}})
		var verr *apierr.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("got %v, want ValidationError", err)
		}
	})
}
