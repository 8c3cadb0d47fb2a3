package prometheus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/xscopehub/promtools/transport"
)

// Series returns the label sets of series matching the given selectors.
func (c *Client) Series(ctx context.Context, matches []string, start, end time.Time) ([]map[string]string, error) {
	params := url.Values{}
	for _, m := range matches {
		params.Add("match[]", m)
	}
	addTimeRange(params, start, end)

	body, err := c.exec.Execute(ctx, http.MethodGet, "api/v1/series", params, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("series query: %w", err)
	}

	var out struct {
		Data []map[string]string `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode series response: %w", err)
	}
	return out.Data, nil
}

// Labels returns label names, optionally restricted to a selector and time
// range.
func (c *Client) Labels(ctx context.Context, match string, start, end time.Time) ([]string, error) {
	params := url.Values{}
	if match != "" {
		params.Add("match[]", match)
	}
	addTimeRange(params, start, end)

	body, err := c.exec.Execute(ctx, http.MethodGet, "api/v1/labels", params, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("labels query: %w", err)
	}
	return decodeStringList(body)
}

// LabelValues returns the values observed for one label name.
func (c *Client) LabelValues(ctx context.Context, label, match string, start, end time.Time) ([]string, error) {
	params := url.Values{}
	if match != "" {
		params.Add("match[]", match)
	}
	addTimeRange(params, start, end)

	endpoint := fmt.Sprintf("api/v1/label/%s/values", url.PathEscape(label))
	body, err := c.exec.Execute(ctx, http.MethodGet, endpoint, params, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("label values query: %w", err)
	}
	return decodeStringList(body)
}

// Target describes one active scrape target.
type Target struct {
	Instance         string            `json:"instance"`
	Job              string            `json:"job"`
	Health           string            `json:"health"`
	LastError        string            `json:"lastError"`
	ScrapeInterval   string            `json:"scrapeInterval"`
	ScrapeTimeout    string            `json:"scrapeTimeout"`
	Labels           map[string]string `json:"labels"`
	DiscoveredLabels map[string]string `json:"discoveredLabels"`
	ScrapePool       string            `json:"scrapePool"`
	ScrapeURL        string            `json:"scrapeUrl"`
	GlobalURL        string            `json:"globalUrl"`
}

// Targets returns the raw targets API response.
func (c *Client) Targets(ctx context.Context) (json.RawMessage, error) {
	body, err := c.exec.Execute(ctx, http.MethodGet, "api/v1/targets", nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get targets: %w", err)
	}
	return body, nil
}

// TargetsDetailed returns the active scrape targets as typed records.
func (c *Client) TargetsDetailed(ctx context.Context) ([]Target, error) {
	body, err := c.Targets(ctx)
	if err != nil {
		return nil, err
	}

	var out struct {
		Data struct {
			ActiveTargets []Target `json:"activeTargets"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode targets response: %w", err)
	}

	targets := out.Data.ActiveTargets
	for i := range targets {
		if addr, ok := targets[i].Labels["__address__"]; ok && targets[i].Instance == "" {
			targets[i].Instance = addr
		}
		if job, ok := targets[i].Labels["job"]; ok && targets[i].Job == "" {
			targets[i].Job = job
		}
	}
	return targets, nil
}

// Rules returns the raw recording and alerting rules response.
func (c *Client) Rules(ctx context.Context) (json.RawMessage, error) {
	body, err := c.exec.Execute(ctx, http.MethodGet, "api/v1/rules", nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get rules: %w", err)
	}
	return body, nil
}

// Alerts returns the raw active alerts response.
func (c *Client) Alerts(ctx context.Context) (json.RawMessage, error) {
	body, err := c.exec.Execute(ctx, http.MethodGet, "api/v1/alerts", nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get alerts: %w", err)
	}
	return body, nil
}

// AlertManagers returns the raw Alertmanager discovery response.
func (c *Client) AlertManagers(ctx context.Context) (json.RawMessage, error) {
	body, err := c.exec.Execute(ctx, http.MethodGet, "api/v1/alertmanagers", nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get alertmanagers: %w", err)
	}
	return body, nil
}

// DeleteSeries removes data for series matching the selectors. Requires the
// admin API to be enabled on the server.
func (c *Client) DeleteSeries(ctx context.Context, matches []string, start, end time.Time) error {
	params := url.Values{}
	for _, m := range matches {
		params.Add("match[]", m)
	}
	addTimeRange(params, start, end)

	if _, err := c.exec.Execute(ctx, http.MethodPost, "api/v1/admin/tsdb/delete_series", params, nil, nil); err != nil {
		return fmt.Errorf("delete series: %w", err)
	}
	return nil
}

// CleanTombstones removes deleted data from disk.
func (c *Client) CleanTombstones(ctx context.Context) error {
	if _, err := c.exec.Execute(ctx, http.MethodPost, "api/v1/admin/tsdb/clean_tombstones", nil, nil, nil); err != nil {
		return fmt.Errorf("clean tombstones: %w", err)
	}
	return nil
}

// Snapshot creates a TSDB snapshot and returns its directory name.
func (c *Client) Snapshot(ctx context.Context, skipHead bool) (string, error) {
	params := url.Values{}
	params.Set("skip_head", fmt.Sprintf("%t", skipHead))

	body, err := c.exec.Execute(ctx, http.MethodPost, "api/v1/admin/tsdb/snapshot", params, nil, nil)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}

	var out struct {
		Data struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode snapshot response: %w", err)
	}
	return out.Data.Name, nil
}

// Healthy checks the -/healthy endpoint. The returned string is the
// server's plain-text status line.
func (c *Client) Healthy(ctx context.Context) (string, error) {
	body, err := c.exec.Execute(ctx, http.MethodGet, "-/healthy", nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("health check: %w", err)
	}
	return string(body), nil
}

// Ready checks the -/ready endpoint.
func (c *Client) Ready(ctx context.Context) (string, error) {
	body, err := c.exec.Execute(ctx, http.MethodGet, "-/ready", nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("readiness check: %w", err)
	}
	return string(body), nil
}

// StatusConfig returns the raw loaded configuration response.
func (c *Client) StatusConfig(ctx context.Context) (json.RawMessage, error) {
	body, err := c.exec.Execute(ctx, http.MethodGet, "api/v1/status/config", nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}
	return body, nil
}

// StatusFlags returns the raw command-line flags response.
func (c *Client) StatusFlags(ctx context.Context) (json.RawMessage, error) {
	body, err := c.exec.Execute(ctx, http.MethodGet, "api/v1/status/flags", nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get flags: %w", err)
	}
	return body, nil
}

func addTimeRange(params url.Values, start, end time.Time) {
	if !start.IsZero() {
		params.Set("start", transport.EpochSeconds(start))
	}
	if !end.IsZero() {
		params.Set("end", transport.EpochSeconds(end))
	}
}

func decodeStringList(body json.RawMessage) ([]string, error) {
	var out struct {
		Data []string `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Data, nil
}
