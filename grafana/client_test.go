package grafana

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"testing"
)

type fakeExecutor struct {
	mu        sync.Mutex
	calls     []fakeCall
	responses map[string]json.RawMessage
	errs      map[string]error
}

type fakeCall struct {
	method   string
	endpoint string
	params   url.Values
	body     any
}

func (f *fakeExecutor) Execute(ctx context.Context, method, endpoint string, params url.Values, body any, headers map[string]string) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{method: method, endpoint: endpoint, params: params, body: body})
	f.mu.Unlock()

	if err, ok := f.errs[endpoint]; ok {
		return nil, err
	}
	if resp, ok := f.responses[endpoint]; ok {
		return resp, nil
	}
	return nil, fmt.Errorf("unexpected endpoint %s", endpoint)
}

func newFakeClient(f *fakeExecutor) *Client {
	return &Client{exec: f, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestSearchDashboardsParams(t *testing.T) {
	f := &fakeExecutor{responses: map[string]json.RawMessage{
		"api/search": json.RawMessage(`[
			{"id":1,"uid":"abc","title":"API Overview","type":"dash-db","tags":["api"]},
			{"id":2,"uid":"def","title":"Infra","type":"dash-db"}
		]`),
	}}
	c := newFakeClient(f)

	hits, err := c.SearchDashboards(context.Background(), SearchOptions{
		Query: "overview",
		Tags:  []string{"api", "prod"},
		Type:  "dash-db",
		Limit: 50,
	})
	if err != nil {
		t.Fatalf("SearchDashboards: %v", err)
	}
	if len(hits) != 2 || hits[0].UID != "abc" {
		t.Fatalf("unexpected hits: %+v", hits)
	}

	params := f.calls[0].params
	if params.Get("query") != "overview" || params.Get("type") != "dash-db" || params.Get("limit") != "50" {
		t.Fatalf("unexpected params: %v", params)
	}
	if tags := params["tag"]; len(tags) != 2 || tags[1] != "prod" {
		t.Fatalf("tag params = %v", tags)
	}
	if params.Get("starred") != "" {
		t.Fatal("zero starred flag should be omitted")
	}
}

func TestDashboardByUID(t *testing.T) {
	f := &fakeExecutor{responses: map[string]json.RawMessage{
		"api/dashboards/uid/abc": json.RawMessage(`{
			"dashboard": {"uid":"abc","title":"API Overview"},
			"meta": {"slug":"api-overview","folderUid":"f1","version":7}
		}`),
	}}
	c := newFakeClient(f)

	d, err := c.Dashboard(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.Meta.FolderUID != "f1" || d.Meta.Version != 7 {
		t.Fatalf("unexpected meta: %+v", d.Meta)
	}
	if len(d.Dashboard) == 0 {
		t.Fatal("dashboard model missing")
	}
}

func TestSaveDashboard(t *testing.T) {
	f := &fakeExecutor{responses: map[string]json.RawMessage{
		"api/dashboards/db": json.RawMessage(`{"id":5,"uid":"abc","status":"success","version":8}`),
	}}
	c := newFakeClient(f)

	model := json.RawMessage(`{"title":"New"}`)
	res, err := c.SaveDashboard(context.Background(), model, "folder1", true)
	if err != nil {
		t.Fatalf("SaveDashboard: %v", err)
	}
	if res.UID != "abc" || res.Version != 8 {
		t.Fatalf("unexpected result: %+v", res)
	}

	body, ok := f.calls[0].body.(map[string]any)
	if !ok {
		t.Fatalf("unexpected body type %T", f.calls[0].body)
	}
	if body["overwrite"] != true || body["folderUid"] != "folder1" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestDatasourceLookups(t *testing.T) {
	ds := `{"id":3,"uid":"prom-uid","name":"Prometheus","type":"prometheus","url":"http://prom:9090"}`
	f := &fakeExecutor{responses: map[string]json.RawMessage{
		"api/datasources/3":               json.RawMessage(ds),
		"api/datasources/uid/prom-uid":    json.RawMessage(ds),
		"api/datasources/name/Prometheus": json.RawMessage(ds),
	}}
	c := newFakeClient(f)
	ctx := context.Background()

	byID, err := c.Datasource(ctx, 3)
	if err != nil {
		t.Fatalf("Datasource: %v", err)
	}
	byUID, err := c.DatasourceByUID(ctx, "prom-uid")
	if err != nil {
		t.Fatalf("DatasourceByUID: %v", err)
	}
	byName, err := c.DatasourceByName(ctx, "Prometheus")
	if err != nil {
		t.Fatalf("DatasourceByName: %v", err)
	}

	for _, got := range []Datasource{byID, byUID, byName} {
		if got.UID != "prom-uid" || got.Type != "prometheus" {
			t.Fatalf("unexpected datasource: %+v", got)
		}
	}
}

func TestUpdateDatasourceRequiresUID(t *testing.T) {
	c := newFakeClient(&fakeExecutor{})
	if _, err := c.UpdateDatasource(context.Background(), Datasource{Name: "x"}); err == nil {
		t.Fatal("expected error without uid")
	}
}

func TestFolderCRUD(t *testing.T) {
	f := &fakeExecutor{responses: map[string]json.RawMessage{
		"api/folders":    json.RawMessage(`{"id":1,"uid":"f1","title":"Team A"}`),
		"api/folders/f1": json.RawMessage(`{"id":1,"uid":"f1","title":"Team A"}`),
	}}
	c := newFakeClient(f)
	ctx := context.Background()

	created, err := c.CreateFolder(ctx, "Team A", "f1")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if created.UID != "f1" {
		t.Fatalf("unexpected folder: %+v", created)
	}

	if err := c.DeleteFolder(ctx, "f1"); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	last := f.calls[len(f.calls)-1]
	if last.method != "DELETE" || last.endpoint != "api/folders/f1" {
		t.Fatalf("unexpected delete call: %+v", last)
	}
}

func TestDashboardsBatch(t *testing.T) {
	f := &fakeExecutor{
		responses: map[string]json.RawMessage{
			"api/dashboards/uid/a": json.RawMessage(`{"dashboard":{"uid":"a"},"meta":{"version":1}}`),
			"api/dashboards/uid/c": json.RawMessage(`{"dashboard":{"uid":"c"},"meta":{"version":3}}`),
		},
		errs: map[string]error{
			"api/dashboards/uid/b": fmt.Errorf("not found"),
		},
	}
	c := newFakeClient(f)

	results := c.DashboardsBatch(context.Background(), []string{"a", "b", "c"}, BatchOptions{MaxConcurrent: 2})
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	for i, uid := range []string{"a", "b", "c"} {
		if results[i].UID != uid {
			t.Fatalf("results[%d].UID = %q, want %q", i, results[i].UID, uid)
		}
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("sibling fetches affected: %v, %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Fatal("missing dashboard did not error")
	}
	if results[2].Dashboard.Meta.Version != 3 {
		t.Fatalf("unexpected dashboard: %+v", results[2].Dashboard)
	}
}

func TestPauseAlert(t *testing.T) {
	f := &fakeExecutor{responses: map[string]json.RawMessage{
		"api/v1/provisioning/alert-rules/r1": json.RawMessage(`{"uid":"r1","title":"High latency","isPaused":false}`),
	}}
	c := newFakeClient(f)

	if err := c.PauseAlert(context.Background(), "r1", true); err != nil {
		t.Fatalf("PauseAlert: %v", err)
	}

	last := f.calls[len(f.calls)-1]
	if last.method != "PUT" {
		t.Fatalf("method = %q, want PUT", last.method)
	}
	model, ok := last.body.(map[string]any)
	if !ok || model["isPaused"] != true {
		t.Fatalf("unexpected body: %v", last.body)
	}
}
