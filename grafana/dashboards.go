package grafana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	qs "github.com/google/go-querystring/query"
)

// Dashboard is the payload returned by the dashboard-by-UID endpoint.
type Dashboard struct {
	Dashboard json.RawMessage `json:"dashboard"`
	Meta      DashboardMeta   `json:"meta"`
}

// DashboardMeta carries placement and provenance details for a dashboard.
type DashboardMeta struct {
	Slug        string `json:"slug"`
	URL         string `json:"url"`
	FolderID    int64  `json:"folderId"`
	FolderUID   string `json:"folderUid"`
	FolderTitle string `json:"folderTitle"`
	Version     int    `json:"version"`
	Created     string `json:"created"`
	Updated     string `json:"updated"`
	CreatedBy   string `json:"createdBy"`
	UpdatedBy   string `json:"updatedBy"`
	Provisioned bool   `json:"provisioned"`
}

// DashboardHit is one row of a dashboard or folder search result.
type DashboardHit struct {
	ID          int64    `json:"id"`
	UID         string   `json:"uid"`
	Title       string   `json:"title"`
	URI         string   `json:"uri"`
	URL         string   `json:"url"`
	Type        string   `json:"type"`
	Tags        []string `json:"tags"`
	FolderID    int64    `json:"folderId"`
	FolderUID   string   `json:"folderUid"`
	FolderTitle string   `json:"folderTitle"`
	IsStarred   bool     `json:"isStarred"`
}

// SearchOptions narrows a dashboard search. Zero fields are omitted from the
// request.
type SearchOptions struct {
	Query     string   `url:"query,omitempty"`
	Tags      []string `url:"tag,omitempty"`
	Type      string   `url:"type,omitempty"`
	FolderIDs []int64  `url:"folderIds,omitempty,comma"`
	Starred   bool     `url:"starred,omitempty"`
	Limit     int      `url:"limit,omitempty"`
	Page      int      `url:"page,omitempty"`
}

// DashboardSaveResult reports the outcome of a create or update.
type DashboardSaveResult struct {
	ID      int64  `json:"id"`
	UID     string `json:"uid"`
	URL     string `json:"url"`
	Slug    string `json:"slug"`
	Status  string `json:"status"`
	Version int    `json:"version"`
}

// Dashboard fetches a dashboard by UID.
func (c *Client) Dashboard(ctx context.Context, uid string) (Dashboard, error) {
	var d Dashboard
	endpoint := "api/dashboards/uid/" + url.PathEscape(uid)
	if err := c.getJSON(ctx, endpoint, nil, &d); err != nil {
		return Dashboard{}, fmt.Errorf("get dashboard %s: %w", uid, err)
	}
	return d, nil
}

// DashboardByID fetches a dashboard by numeric ID via search, since the
// by-ID endpoint was removed in recent Grafana versions.
func (c *Client) DashboardByID(ctx context.Context, id int64) (Dashboard, error) {
	hits, err := c.SearchDashboards(ctx, SearchOptions{Type: "dash-db", FolderIDs: nil})
	if err != nil {
		return Dashboard{}, err
	}
	for _, h := range hits {
		if h.ID == id {
			return c.Dashboard(ctx, h.UID)
		}
	}
	return Dashboard{}, fmt.Errorf("dashboard id %d not found", id)
}

// SearchDashboards queries the search API for dashboards and folders.
func (c *Client) SearchDashboards(ctx context.Context, opts SearchOptions) ([]DashboardHit, error) {
	params, err := qs.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("encode search params: %w", err)
	}

	var hits []DashboardHit
	if err := c.getJSON(ctx, "api/search", params, &hits); err != nil {
		return nil, fmt.Errorf("search dashboards: %w", err)
	}
	return hits, nil
}

// SaveDashboard creates or updates a dashboard. Set overwrite to replace an
// existing dashboard regardless of version.
func (c *Client) SaveDashboard(ctx context.Context, model json.RawMessage, folderUID string, overwrite bool) (DashboardSaveResult, error) {
	req := map[string]any{
		"dashboard": model,
		"overwrite": overwrite,
	}
	if folderUID != "" {
		req["folderUid"] = folderUID
	}

	var res DashboardSaveResult
	if err := c.postJSON(ctx, "api/dashboards/db", req, &res); err != nil {
		return DashboardSaveResult{}, fmt.Errorf("save dashboard: %w", err)
	}
	return res, nil
}

// DeleteDashboard removes a dashboard by UID.
func (c *Client) DeleteDashboard(ctx context.Context, uid string) error {
	if err := c.delete(ctx, "api/dashboards/uid/"+url.PathEscape(uid)); err != nil {
		return fmt.Errorf("delete dashboard %s: %w", uid, err)
	}
	return nil
}

// MoveDashboard relocates a dashboard into another folder, preserving its
// model and bumping the version.
func (c *Client) MoveDashboard(ctx context.Context, uid, folderUID string) (DashboardSaveResult, error) {
	d, err := c.Dashboard(ctx, uid)
	if err != nil {
		return DashboardSaveResult{}, err
	}
	return c.SaveDashboard(ctx, d.Dashboard, folderUID, true)
}

// HomeDashboard returns the instance's home dashboard.
func (c *Client) HomeDashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	if err := c.getJSON(ctx, "api/dashboards/home", nil, &d); err != nil {
		return Dashboard{}, fmt.Errorf("get home dashboard: %w", err)
	}
	return d, nil
}

// DashboardTags returns the tags in use with their dashboard counts.
func (c *Client) DashboardTags(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Term  string `json:"term"`
		Count int    `json:"count"`
	}
	if err := c.getJSON(ctx, "api/dashboards/tags", nil, &rows); err != nil {
		return nil, fmt.Errorf("get dashboard tags: %w", err)
	}

	tags := make(map[string]int, len(rows))
	for _, r := range rows {
		tags[r.Term] = r.Count
	}
	return tags, nil
}
