package promutil

import (
	"encoding/json"
	"fmt"
	"os"
)

// Panel is a minimal Grafana panel definition.
type Panel struct {
	ID      int      `json:"id"`
	Title   string   `json:"title"`
	Type    string   `json:"type"`
	GridPos GridPos  `json:"gridPos"`
	Targets []Target `json:"targets,omitempty"`
	Options any      `json:"options,omitempty"`
}

// GridPos places a panel on the dashboard grid.
type GridPos struct {
	H int `json:"h"`
	W int `json:"w"`
	X int `json:"x"`
	Y int `json:"y"`
}

// Target is one PromQL query driving a panel.
type Target struct {
	Expr         string `json:"expr"`
	LegendFormat string `json:"legendFormat,omitempty"`
	RefID        string `json:"refId"`
}

// DashboardModel is a minimal Grafana dashboard definition suitable for the
// save endpoint.
type DashboardModel struct {
	UID           string   `json:"uid,omitempty"`
	Title         string   `json:"title"`
	Tags          []string `json:"tags,omitempty"`
	Timezone      string   `json:"timezone,omitempty"`
	SchemaVersion int      `json:"schemaVersion"`
	Refresh       string   `json:"refresh,omitempty"`
	Panels        []Panel  `json:"panels"`
}

// NewDashboard starts a dashboard with sane defaults.
func NewDashboard(title string, tags ...string) *DashboardModel {
	return &DashboardModel{
		Title:         title,
		Tags:          tags,
		Timezone:      "browser",
		SchemaVersion: 39,
		Refresh:       "30s",
	}
}

// AddPanel appends a graph panel driven by the given PromQL expressions,
// assigning the panel ID, grid position and target ref IDs automatically.
// Panels are laid out two per row.
func (d *DashboardModel) AddPanel(title, panelType string, exprs ...string) *DashboardModel {
	const panelWidth, panelHeight = 12, 8

	n := len(d.Panels)
	targets := make([]Target, len(exprs))
	for i, expr := range exprs {
		targets[i] = Target{Expr: expr, RefID: string(rune('A' + i))}
	}

	d.Panels = append(d.Panels, Panel{
		ID:    n + 1,
		Title: title,
		Type:  panelType,
		GridPos: GridPos{
			H: panelHeight,
			W: panelWidth,
			X: (n % 2) * panelWidth,
			Y: (n / 2) * panelHeight,
		},
		Targets: targets,
	})
	return d
}

// JSON renders the dashboard model, ready for the Grafana save endpoint.
func (d *DashboardModel) JSON() (json.RawMessage, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal dashboard %q: %w", d.Title, err)
	}
	return data, nil
}

// ExportDashboard writes a raw dashboard model to path as indented JSON.
func ExportDashboard(path string, model json.RawMessage) error {
	var buf any
	if err := json.Unmarshal(model, &buf); err != nil {
		return fmt.Errorf("decode dashboard model: %w", err)
	}
	data, err := json.MarshalIndent(buf, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dashboard model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write dashboard %s: %w", path, err)
	}
	return nil
}

// LoadDashboard reads a dashboard model from a JSON file, stripping the id
// and version fields so the result can be imported into another instance.
func LoadDashboard(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dashboard %s: %w", path, err)
	}

	var model map[string]any
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("decode dashboard %s: %w", path, err)
	}
	delete(model, "id")
	delete(model, "version")

	out, err := json.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("encode dashboard %s: %w", path, err)
	}
	return out, nil
}
