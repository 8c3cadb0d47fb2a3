package grafana

import (
	"context"
	"fmt"
	"net/url"
)

// Folder is a dashboard folder.
type Folder struct {
	ID        int64  `json:"id"`
	UID       string `json:"uid"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	ParentUID string `json:"parentUid,omitempty"`
	Version   int    `json:"version"`
	CanSave   bool   `json:"canSave"`
	CanEdit   bool   `json:"canEdit"`
	CanAdmin  bool   `json:"canAdmin"`
}

// Folders lists all folders visible to the caller.
func (c *Client) Folders(ctx context.Context) ([]Folder, error) {
	var folders []Folder
	if err := c.getJSON(ctx, "api/folders", nil, &folders); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return folders, nil
}

// Folder fetches one folder by UID.
func (c *Client) Folder(ctx context.Context, uid string) (Folder, error) {
	var f Folder
	if err := c.getJSON(ctx, "api/folders/"+url.PathEscape(uid), nil, &f); err != nil {
		return Folder{}, fmt.Errorf("get folder %s: %w", uid, err)
	}
	return f, nil
}

// CreateFolder creates a folder. uid may be empty to let the server assign
// one.
func (c *Client) CreateFolder(ctx context.Context, title, uid string) (Folder, error) {
	req := map[string]any{"title": title}
	if uid != "" {
		req["uid"] = uid
	}

	var f Folder
	if err := c.postJSON(ctx, "api/folders", req, &f); err != nil {
		return Folder{}, fmt.Errorf("create folder %q: %w", title, err)
	}
	return f, nil
}

// UpdateFolder renames a folder. The stored version is overwritten.
func (c *Client) UpdateFolder(ctx context.Context, uid, title string) (Folder, error) {
	req := map[string]any{
		"title":     title,
		"overwrite": true,
	}

	var f Folder
	if err := c.putJSON(ctx, "api/folders/"+url.PathEscape(uid), req, &f); err != nil {
		return Folder{}, fmt.Errorf("update folder %s: %w", uid, err)
	}
	return f, nil
}

// DeleteFolder removes a folder and the dashboards it contains.
func (c *Client) DeleteFolder(ctx context.Context, uid string) error {
	if err := c.delete(ctx, "api/folders/"+url.PathEscape(uid)); err != nil {
		return fmt.Errorf("delete folder %s: %w", uid, err)
	}
	return nil
}
