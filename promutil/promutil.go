// Package promutil collects helpers for working with Prometheus data:
// time-range parsing, metric naming, label sets and rule and dashboard
// definition builders.
package promutil

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ParseTimeRange interprets start and end, each either an RFC3339 timestamp
// or a relative duration like "-1h" resolved against now. An empty end means
// now.
func ParseTimeRange(start, end string, now time.Time) (time.Time, time.Time, error) {
	if now.IsZero() {
		now = time.Now()
	}

	s, err := parseTimePoint(start, now)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse start %q: %w", start, err)
	}

	e := now
	if end != "" {
		e, err = parseTimePoint(end, now)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse end %q: %w", end, err)
		}
	}

	if e.Before(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s precedes start %s", e.Format(time.RFC3339), s.Format(time.RFC3339))
	}
	return s, e, nil
}

func parseTimePoint(v string, now time.Time) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(strings.TrimPrefix(v, "+"))
	if err != nil {
		return time.Time{}, fmt.Errorf("not an RFC3339 timestamp or duration")
	}
	return now.Add(d), nil
}

// FormatDuration renders d in the largest meaningful unit, matching the
// shorthand Prometheus uses for ranges: "90s" stays seconds, "2h" collapses
// hours, days appear once d spans 24h exactly.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "-" + FormatDuration(-d)
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int64(d/time.Second))
	case d < time.Hour:
		if d%time.Minute == 0 {
			return fmt.Sprintf("%dm", int64(d/time.Minute))
		}
		return fmt.Sprintf("%ds", int64(d/time.Second))
	case d < 24*time.Hour:
		if d%time.Hour == 0 {
			return fmt.Sprintf("%dh", int64(d/time.Hour))
		}
		return fmt.Sprintf("%dm", int64(d/time.Minute))
	default:
		if d%(24*time.Hour) == 0 {
			return fmt.Sprintf("%dd", int64(d/(24*time.Hour)))
		}
		return fmt.Sprintf("%dh", int64(d/time.Hour))
	}
}

var invalidMetricChars = regexp.MustCompile(`[^a-zA-Z0-9_:]`)

// SanitizeMetricName rewrites s into a valid Prometheus metric name:
// invalid characters become underscores and a leading digit is prefixed.
func SanitizeMetricName(s string) string {
	if s == "" {
		return "_"
	}
	name := invalidMetricChars.ReplaceAllString(s, "_")
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

// MergeLabels combines label sets left to right; later sets win on conflict.
// The inputs are never mutated.
func MergeLabels(sets ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, set := range sets {
		for k, v := range set {
			merged[k] = v
		}
	}
	return merged
}
