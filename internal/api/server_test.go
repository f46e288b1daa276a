package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"nemscan/internal/collector"
	"nemscan/internal/config"
	"nemscan/internal/eventbus"
)

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.DataPath = t.TempDir()

	svc := collector.NewService(&collector.Env{Cfg: cfg})
	s := NewServer(cfg, svc, eventbus.New())

	srv := httptest.NewServer(s.httpSrv.Handler)
	t.Cleanup(srv.Close)
	return s, srv
}

func TestHealthz(t *testing.T) {
	_, srv := testServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestStatusBeforeFirstCycle(t *testing.T) {
	_, srv := testServer(t)

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q", body.Status)
	}
	if body.LastCycle != nil {
		t.Error("no cycle has run yet, last_cycle should be null")
	}
	if len(body.Datasets) != len(allDatasets) {
		t.Errorf("expected %d dataset entries, got %d", len(allDatasets), len(body.Datasets))
	}
}

func TestDatasetsEmptyDir(t *testing.T) {
	_, srv := testServer(t)

	resp, err := http.Get(srv.URL + "/api/datasets")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var body []datasetStatus
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, d := range body {
		if d.Exists {
			t.Errorf("dataset %s should not exist in an empty data dir", d.Dataset)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, srv := testServer(t)

	resp, err := http.Post(srv.URL+"/api/status", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}
