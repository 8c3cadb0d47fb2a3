package grafana

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Datasource describes a configured data source.
type Datasource struct {
	ID        int64          `json:"id,omitempty"`
	UID       string         `json:"uid,omitempty"`
	OrgID     int64          `json:"orgId,omitempty"`
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	URL       string         `json:"url"`
	Access    string         `json:"access,omitempty"`
	IsDefault bool           `json:"isDefault,omitempty"`
	ReadOnly  bool           `json:"readOnly,omitempty"`
	JSONData  map[string]any `json:"jsonData,omitempty"`
}

// Datasources lists all data sources.
func (c *Client) Datasources(ctx context.Context) ([]Datasource, error) {
	var sources []Datasource
	if err := c.getJSON(ctx, "api/datasources", nil, &sources); err != nil {
		return nil, fmt.Errorf("list datasources: %w", err)
	}
	return sources, nil
}

// Datasource fetches a data source by numeric ID.
func (c *Client) Datasource(ctx context.Context, id int64) (Datasource, error) {
	var ds Datasource
	endpoint := "api/datasources/" + strconv.FormatInt(id, 10)
	if err := c.getJSON(ctx, endpoint, nil, &ds); err != nil {
		return Datasource{}, fmt.Errorf("get datasource %d: %w", id, err)
	}
	return ds, nil
}

// DatasourceByUID fetches a data source by UID.
func (c *Client) DatasourceByUID(ctx context.Context, uid string) (Datasource, error) {
	var ds Datasource
	endpoint := "api/datasources/uid/" + url.PathEscape(uid)
	if err := c.getJSON(ctx, endpoint, nil, &ds); err != nil {
		return Datasource{}, fmt.Errorf("get datasource %s: %w", uid, err)
	}
	return ds, nil
}

// DatasourceByName fetches a data source by name.
func (c *Client) DatasourceByName(ctx context.Context, name string) (Datasource, error) {
	var ds Datasource
	endpoint := "api/datasources/name/" + url.PathEscape(name)
	if err := c.getJSON(ctx, endpoint, nil, &ds); err != nil {
		return Datasource{}, fmt.Errorf("get datasource %q: %w", name, err)
	}
	return ds, nil
}

// CreateDatasource registers a new data source and returns the stored record.
func (c *Client) CreateDatasource(ctx context.Context, ds Datasource) (Datasource, error) {
	var out struct {
		Datasource Datasource `json:"datasource"`
	}
	if err := c.postJSON(ctx, "api/datasources", ds, &out); err != nil {
		return Datasource{}, fmt.Errorf("create datasource %q: %w", ds.Name, err)
	}
	return out.Datasource, nil
}

// UpdateDatasource replaces the data source identified by ds.UID.
func (c *Client) UpdateDatasource(ctx context.Context, ds Datasource) (Datasource, error) {
	if ds.UID == "" {
		return Datasource{}, fmt.Errorf("update datasource: uid is required")
	}

	var out struct {
		Datasource Datasource `json:"datasource"`
	}
	endpoint := "api/datasources/uid/" + url.PathEscape(ds.UID)
	if err := c.putJSON(ctx, endpoint, ds, &out); err != nil {
		return Datasource{}, fmt.Errorf("update datasource %s: %w", ds.UID, err)
	}
	return out.Datasource, nil
}

// DeleteDatasource removes a data source by UID.
func (c *Client) DeleteDatasource(ctx context.Context, uid string) error {
	if err := c.delete(ctx, "api/datasources/uid/"+url.PathEscape(uid)); err != nil {
		return fmt.Errorf("delete datasource %s: %w", uid, err)
	}
	return nil
}
