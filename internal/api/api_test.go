package api_test

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/metapool/metapool/internal/api"
	"github.com/metapool/metapool/internal/store"
	"github.com/metapool/metapool/pkg/types"
)

// --- test helpers -----------------------------------------------------------

func newStore(t *testing.T, runs ...types.Run) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	for _, run := range runs {
		if err := st.Put(run); err != nil {
			t.Fatalf("put run %s: %v", run.ID, err)
		}
	}
	return st
}

func run(id string, createdAt time.Time) types.Run {
	return types.Run{
		ID:        id,
		Label:     "trial batch",
		Dataset:   "studies.csv",
		CreatedAt: createdAt,
		Effects: []types.Effect{
			{
				Study:    types.Study{Author: "Franks", Year: 2007, NTx: 32, NCont: 30, MTx: 11.8, MCont: 10.9, SDTx: 3.2, SDCont: 3.3},
				G:        0.273554988,
				Variance: 0.065186820,
			},
			{
				Study:    types.Study{Author: "Jeffers", Year: 2004, NTx: 28, NCont: 26, MTx: 15.6, MCont: 13.4, SDTx: 3.4, SDCont: 3.5},
				G:        0.628723899,
				Variance: 0.077835951,
			},
		},
		Summary: types.Summary{
			Effect: 0.44, SE: 0.186, CILow: 0.075, CIHigh: 0.805,
			Level: 0.95, K: 2, DF: 1, Q: 0.88, P: 0.348,
		},
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth_EmptyStore(t *testing.T) {
	h := api.New(newStore(t), "")
	rr := get(t, h, "/api/v1/health")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)

	if resp["state"] != "waiting" {
		t.Errorf("state: got %v, want waiting", resp["state"])
	}
	if resp["run_count"].(float64) != 0 {
		t.Errorf("run_count: got %v, want 0", resp["run_count"])
	}
}

func TestHealth_WithRuns(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	h := api.New(newStore(t, run("run-1", at), run("run-2", at.Add(time.Minute))), "")
	rr := get(t, h, "/api/v1/health")

	var resp map[string]interface{}
	decode(t, rr, &resp)

	if resp["state"] != "ok" {
		t.Errorf("state: got %v, want ok", resp["state"])
	}
	if resp["run_count"].(float64) != 2 {
		t.Errorf("run_count: got %v, want 2", resp["run_count"])
	}
	if resp["latest_run"] != "run-2" {
		t.Errorf("latest_run: got %v, want run-2", resp["latest_run"])
	}
	if resp["latest_at"] != "2026-03-14T10:01:00Z" {
		t.Errorf("latest_at: got %v", resp["latest_at"])
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	h := api.New(newStore(t), "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/health", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- /api/v1/runs -----------------------------------------------------------

func TestListRuns_Empty(t *testing.T) {
	h := api.New(newStore(t), "")
	rr := get(t, h, "/api/v1/runs")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []interface{}
	decode(t, rr, &resp)
	if len(resp) != 0 {
		t.Errorf("runs: got %d items, want 0", len(resp))
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	h := api.New(newStore(t,
		run("run-1", at),
		run("run-2", at.Add(time.Minute)),
		run("run-3", at.Add(2*time.Minute)),
	), "")
	rr := get(t, h, "/api/v1/runs")

	var resp []map[string]interface{}
	decode(t, rr, &resp)
	if len(resp) != 3 {
		t.Fatalf("runs: got %d, want 3", len(resp))
	}
	for i, want := range []string{"run-3", "run-2", "run-1"} {
		if resp[i]["id"] != want {
			t.Errorf("runs[%d].id: got %v, want %s", i, resp[i]["id"], want)
		}
	}
	if resp[0]["study_count"].(float64) != 2 {
		t.Errorf("study_count: got %v, want 2", resp[0]["study_count"])
	}
}

func TestListRuns_Limit(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	h := api.New(newStore(t,
		run("run-1", at),
		run("run-2", at.Add(time.Minute)),
		run("run-3", at.Add(2*time.Minute)),
	), "")
	rr := get(t, h, "/api/v1/runs?limit=2")

	var resp []map[string]interface{}
	decode(t, rr, &resp)
	if len(resp) != 2 {
		t.Fatalf("runs: got %d, want 2", len(resp))
	}
	if resp[0]["id"] != "run-3" {
		t.Errorf("runs[0].id: got %v, want run-3", resp[0]["id"])
	}
}

func TestListRuns_InvalidLimit(t *testing.T) {
	h := api.New(newStore(t), "")
	for _, q := range []string{"limit=0", "limit=-1", "limit=abc"} {
		rr := get(t, h, "/api/v1/runs?"+q)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status got %d, want 400", q, rr.Code)
		}
	}
}

// --- /api/v1/runs/{id} ------------------------------------------------------

func TestGetRun_Found(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	h := api.New(newStore(t, run("run-1", at)), "")
	rr := get(t, h, "/api/v1/runs/run-1")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)
	if resp["id"] != "run-1" {
		t.Errorf("id: got %v", resp["id"])
	}
	if resp["created_at"] != "2026-03-14T10:00:00Z" {
		t.Errorf("created_at: got %v", resp["created_at"])
	}
	studies := resp["studies"].([]interface{})
	if len(studies) != 2 {
		t.Fatalf("studies: got %d, want 2", len(studies))
	}
	first := studies[0].(map[string]interface{})
	if first["author"] != "Franks" {
		t.Errorf("studies[0].author: got %v, want Franks", first["author"])
	}
	summary := resp["summary"].(map[string]interface{})
	if summary["effect"].(float64) != 0.44 {
		t.Errorf("summary.effect: got %v, want 0.44", summary["effect"])
	}
}

func TestGetRun_NotFound(t *testing.T) {
	h := api.New(newStore(t), "")
	rr := get(t, h, "/api/v1/runs/does-not-exist")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

// --- /api/v1/summary --------------------------------------------------------

func TestSummary_LatestRun(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	older := run("run-1", at)
	newer := run("run-2", at.Add(time.Minute))
	newer.Summary.Effect = 0.51

	h := api.New(newStore(t, older, newer), "")
	rr := get(t, h, "/api/v1/summary")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)
	if resp["effect"].(float64) != 0.51 {
		t.Errorf("effect: got %v, want 0.51 (latest run)", resp["effect"])
	}
	if resp["k"].(float64) != 2 {
		t.Errorf("k: got %v, want 2", resp["k"])
	}
}

func TestSummary_NoRuns(t *testing.T) {
	h := api.New(newStore(t), "")
	rr := get(t, h, "/api/v1/summary")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

// --- /api/v1/studies --------------------------------------------------------

func TestStudies_WeightsSumToHundred(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	h := api.New(newStore(t, run("run-1", at)), "")
	rr := get(t, h, "/api/v1/studies")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []map[string]interface{}
	decode(t, rr, &resp)
	if len(resp) != 2 {
		t.Fatalf("studies: got %d, want 2", len(resp))
	}

	var total float64
	for _, s := range resp {
		total += s["weight_pct"].(float64)
	}
	if math.Abs(total-100) > 1e-9 {
		t.Errorf("weight_pct sum: got %v, want 100", total)
	}
	// The larger study (smaller variance) carries the larger weight.
	if resp[0]["weight_pct"].(float64) <= resp[1]["weight_pct"].(float64) {
		t.Errorf("weights: Franks %v should outweigh Jeffers %v",
			resp[0]["weight_pct"], resp[1]["weight_pct"])
	}
}

func TestStudies_NoRuns(t *testing.T) {
	h := api.New(newStore(t), "")
	rr := get(t, h, "/api/v1/studies")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

// --- /metrics ---------------------------------------------------------------

func TestMetrics_EmptyStore(t *testing.T) {
	h := api.New(newStore(t), "")
	rr := get(t, h, "/metrics")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "metapool_runs_total 0") {
		t.Errorf("exposition missing run counter:\n%s", body)
	}
	if strings.Contains(body, "metapool_latest_effect") {
		t.Errorf("exposition has latest-run gauges with no runs:\n%s", body)
	}
}

func TestMetrics_LatestRunGauges(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	h := api.New(newStore(t, run("run-1", at)), "")
	rr := get(t, h, "/metrics")

	body := rr.Body.String()
	for _, want := range []string{
		"metapool_runs_total 1",
		"metapool_latest_effect 0.44",
		"metapool_latest_studies 2",
		"# TYPE metapool_latest_q gauge",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q:\n%s", want, body)
		}
	}
}

// --- Content-Type -----------------------------------------------------------

func TestContentTypeJSON(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	h := api.New(newStore(t, run("run-1", at)), "")
	for _, path := range []string{
		"/api/v1/health",
		"/api/v1/runs",
		"/api/v1/runs/run-1",
		"/api/v1/summary",
		"/api/v1/studies",
	} {
		rr := get(t, h, path)
		ct := rr.Header().Get("Content-Type")
		if ct != "application/json" {
			t.Errorf("%s Content-Type: got %q, want application/json", path, ct)
		}
	}
}
