package promutil

import (
	"testing"
	"time"
)

func TestParseTimeRange(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	t.Run("rfc3339 pair", func(t *testing.T) {
		start, end, err := ParseTimeRange("2026-08-26T10:00:00Z", "2026-08-26T11:00:00Z", now)
		if err != nil {
			t.Fatalf("ParseTimeRange: %v", err)
		}
		if end.Sub(start) != time.Hour {
			t.Fatalf("window = %v, want 1h", end.Sub(start))
		}
	})

	t.Run("relative start, empty end", func(t *testing.T) {
		start, end, err := ParseTimeRange("-2h", "", now)
		if err != nil {
			t.Fatalf("ParseTimeRange: %v", err)
		}
		if !end.Equal(now) {
			t.Fatalf("end = %v, want now", end)
		}
		if !start.Equal(now.Add(-2 * time.Hour)) {
			t.Fatalf("start = %v", start)
		}
	})

	t.Run("end before start", func(t *testing.T) {
		if _, _, err := ParseTimeRange("-1h", "-2h", now); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("garbage input", func(t *testing.T) {
		if _, _, err := ParseTimeRange("yesterday", "", now); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("empty start", func(t *testing.T) {
		if _, _, err := ParseTimeRange("", "", now); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "90s"},
		{2 * time.Minute, "2m"},
		{time.Hour, "1h"},
		{90 * time.Minute, "90m"},
		{24 * time.Hour, "1d"},
		{36 * time.Hour, "36h"},
		{72 * time.Hour, "3d"},
		{-time.Minute, "-1m"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Fatalf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestSanitizeMetricName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http.requests.total", "http_requests_total"},
		{"api-latency ms", "api_latency_ms"},
		{"9lives", "_9lives"},
		{"already_valid:name", "already_valid:name"},
		{"", "_"},
	}

	for _, tt := range tests {
		if got := SanitizeMetricName(tt.in); got != tt.want {
			t.Fatalf("SanitizeMetricName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMergeLabels(t *testing.T) {
	base := map[string]string{"env": "prod", "team": "infra"}
	override := map[string]string{"env": "staging", "app": "api"}

	merged := MergeLabels(base, override)
	if merged["env"] != "staging" || merged["team"] != "infra" || merged["app"] != "api" {
		t.Fatalf("unexpected merge: %v", merged)
	}
	if base["env"] != "prod" {
		t.Fatal("input map mutated")
	}
}
