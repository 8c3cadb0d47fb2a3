package query

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SamplePair is one timestamped value from a range query.
type SamplePair struct {
	Timestamp time.Time
	Value     float64
}

// Metric is one labeled series extracted from a query response. Exactly one
// of Value and Values is populated: Value for instant vectors, Values for
// range matrices.
type Metric struct {
	Name      string
	Labels    map[string]string
	Value     *float64
	Timestamp time.Time
	Values    []SamplePair
}

// LabelString renders the label set as "k1=v1, k2=v2" in sorted key order so
// display output is stable across runs.
func (m Metric) LabelString() string {
	keys := make([]string, 0, len(m.Labels))
	for k := range m.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m.Labels[k])
	}
	return strings.Join(parts, ", ")
}

// Result is the outcome of one executed query, success or failure. When
// Success is false, Metrics is empty and Error carries the failure detail.
type Result struct {
	QueryName string
	Query     string
	QueryType string
	Success   bool
	Status    string
	Metrics   []Metric
	Error     string
	Elapsed   time.Duration
	Raw       json.RawMessage
}

// DisplayName returns the query name, or the query text truncated for display.
func (r Result) DisplayName() string {
	if r.QueryName != "" {
		return r.QueryName
	}
	return truncate(r.Query)
}

// MetricCount returns the number of series in the result.
func (r Result) MetricCount() int { return len(r.Metrics) }

// apiEnvelope mirrors the Prometheus API response wrapper.
type apiEnvelope struct {
	Status    string `json:"status"`
	ErrorType string `json:"errorType"`
	Error     string `json:"error"`
	Data      struct {
		ResultType string          `json:"resultType"`
		Result     json.RawMessage `json:"result"`
	} `json:"data"`
}

type seriesPayload struct {
	Metric map[string]string `json:"metric"`
	Value  json.RawMessage   `json:"value"`
	Values []json.RawMessage `json:"values"`
}

// ResultFromResponse builds a Result from a raw query API response body.
// Unknown result types yield a successful Result with zero metrics so newer
// Prometheus result shapes pass through without breaking batches.
func ResultFromResponse(name, text string, body json.RawMessage, elapsed time.Duration, queryType string) Result {
	res := Result{
		QueryName: name,
		Query:     text,
		QueryType: queryType,
		Elapsed:   elapsed,
		Raw:       body,
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		res.Status = "error"
		res.Error = "decode response: " + err.Error()
		return res
	}

	res.Status = env.Status
	if env.Status != "success" {
		if env.Error != "" {
			res.Error = env.Error
		} else {
			res.Error = "unknown error"
		}
		return res
	}

	res.Success = true

	var series []seriesPayload
	if len(env.Data.Result) > 0 {
		if err := json.Unmarshal(env.Data.Result, &series); err != nil {
			// Scalar and string results are not series lists.
			return res
		}
	}

	switch env.Data.ResultType {
	case "vector":
		for _, s := range series {
			ts, val, err := parseSample(s.Value)
			if err != nil {
				continue
			}
			v := val
			res.Metrics = append(res.Metrics, Metric{
				Name:      metricName(s.Metric),
				Labels:    stripNameLabel(s.Metric),
				Value:     &v,
				Timestamp: ts,
			})
		}
	case "matrix":
		for _, s := range series {
			m := Metric{
				Name:   metricName(s.Metric),
				Labels: stripNameLabel(s.Metric),
			}
			for _, raw := range s.Values {
				ts, val, err := parseSample(raw)
				if err != nil {
					continue
				}
				m.Values = append(m.Values, SamplePair{Timestamp: ts, Value: val})
			}
			res.Metrics = append(res.Metrics, m)
		}
	}

	return res
}

// ResultFromError builds a failed Result from an execution error.
func ResultFromError(name, text string, err error, elapsed time.Duration, queryType string) Result {
	return Result{
		QueryName: name,
		Query:     text,
		QueryType: queryType,
		Success:   false,
		Status:    "error",
		Error:     err.Error(),
		Elapsed:   elapsed,
	}
}

// parseSample decodes a Prometheus [timestamp, "value"] pair. Values arrive
// as strings and are parsed with IEEE-754 semantics, so "NaN" and "+Inf" are
// valid samples rather than errors.
func parseSample(raw json.RawMessage) (time.Time, float64, error) {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil {
		return time.Time{}, 0, err
	}
	var epoch float64
	if err := json.Unmarshal(pair[0], &epoch); err != nil {
		return time.Time{}, 0, err
	}
	var s string
	if err := json.Unmarshal(pair[1], &s); err != nil {
		return time.Time{}, 0, err
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, 0, err
	}
	return time.Unix(0, int64(epoch*float64(time.Second))), val, nil
}

func metricName(labels map[string]string) string {
	if name, ok := labels["__name__"]; ok && name != "" {
		return name
	}
	return "unknown"
}

func stripNameLabel(labels map[string]string) map[string]string {
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		if k == "__name__" {
			continue
		}
		out[k] = v
	}
	return out
}
