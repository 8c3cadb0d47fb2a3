package grafana

import (
	"context"
	"fmt"
)

// Org is the organization of the current API key or user.
type Org struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CurrentOrg returns the caller's organization.
func (c *Client) CurrentOrg(ctx context.Context) (Org, error) {
	var org Org
	if err := c.getJSON(ctx, "api/org", nil, &org); err != nil {
		return Org{}, fmt.Errorf("get current org: %w", err)
	}
	return org, nil
}

// User is a Grafana user account.
type User struct {
	ID            int64  `json:"id"`
	Login         string `json:"login"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	IsAdmin       bool   `json:"isAdmin"`
	IsDisabled    bool   `json:"isDisabled"`
	LastSeenAt    string `json:"lastSeenAt"`
	LastSeenAtAge string `json:"lastSeenAtAge"`
}

// OrgUsers lists the users of the caller's organization.
func (c *Client) OrgUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.getJSON(ctx, "api/org/users", nil, &users); err != nil {
		return nil, fmt.Errorf("list org users: %w", err)
	}
	return users, nil
}

// Stats is the instance usage summary from the admin API. Requires admin
// credentials; API keys are rejected.
type Stats struct {
	Dashboards  int64 `json:"dashboards"`
	Datasources int64 `json:"datasources"`
	Users       int64 `json:"users"`
	ActiveUsers int64 `json:"activeUsers"`
	Orgs        int64 `json:"orgs"`
	Alerts      int64 `json:"alerts"`
	Snapshots   int64 `json:"snapshots"`
	Playlists   int64 `json:"playlists"`
	Tags        int64 `json:"tags"`
	Stars       int64 `json:"stars"`
	Folders     int64 `json:"folders"`
}

// AdminStats returns instance-wide usage statistics.
func (c *Client) AdminStats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := c.getJSON(ctx, "api/admin/stats", nil, &stats); err != nil {
		return Stats{}, fmt.Errorf("get admin stats: %w", err)
	}
	return stats, nil
}

// AdminUsers lists all users across organizations.
func (c *Client) AdminUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.getJSON(ctx, "api/users", nil, &users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
