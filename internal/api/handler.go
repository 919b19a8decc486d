package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/metapool/metapool/internal/store"
	"github.com/metapool/metapool/pkg/types"
)

// defaultListLimit caps GET /api/v1/runs when no limit parameter is given.
const defaultListLimit = 50

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads run snapshots from the run store and returns JSON responses.
type Handler struct {
	store   *store.Store
	plotDir string
	mux     *http.ServeMux
}

// New creates a Handler wired to the given run store and registers all
// routes. plotDir is the directory the pipeline writes forest/funnel
// figures to; it is served verbatim under /plots/. An empty plotDir
// disables the static file routes.
func New(st *store.Store, plotDir string) http.Handler {
	h := &Handler{store: st, plotDir: plotDir, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/runs", h.listRuns)
	h.mux.HandleFunc("/api/v1/runs/", h.getRun) // subtree — extracts {id}
	h.mux.HandleFunc("/api/v1/summary", h.summary)
	h.mux.HandleFunc("/api/v1/studies", h.studies)
	h.mux.HandleFunc("/metrics", h.metrics)

	if plotDir != "" {
		h.mux.Handle("/plots/", http.StripPrefix("/plots/", http.FileServer(http.Dir(plotDir))))
	}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health — store state and latest run pointer.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	n, err := h.store.Count()
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	resp := HealthResponse{RunCount: n}
	if n == 0 {
		resp.State = "waiting"
		jsonResp(w, http.StatusOK, resp)
		return
	}

	latest, err := h.store.Latest()
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	resp.State = "ok"
	resp.LatestRun = latest.ID
	resp.LatestAt = latest.CreatedAt.UTC().Format(time.RFC3339)
	jsonResp(w, http.StatusOK, resp)
}

// listRuns returns GET /api/v1/runs — stored runs, newest first.
// An optional ?limit=N query parameter caps the result.
func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := defaultListLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			jsonErr(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := h.store.List(limit)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	out := make([]RunListEntry, 0, len(runs))
	for _, run := range runs {
		out = append(out, toListEntry(run))
	}
	jsonResp(w, http.StatusOK, out)
}

// getRun returns GET /api/v1/runs/{id} — one stored run in full.
func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	if id == "" {
		// Redirect bare /api/v1/runs/ to list handler.
		h.listRuns(w, r)
		return
	}

	run, err := h.store.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		jsonErr(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	jsonResp(w, http.StatusOK, toRunResponse(run))
}

// summary returns GET /api/v1/summary — the pooled result of the latest run.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	run, err := h.store.Latest()
	if errors.Is(err, store.ErrNotFound) {
		jsonErr(w, http.StatusNotFound, "no runs yet")
		return
	}
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	jsonResp(w, http.StatusOK, toSummaryResponse(run.Summary))
}

// studies returns GET /api/v1/studies — the per-study rows of the
// latest run with their computed effect sizes.
func (h *Handler) studies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	run, err := h.store.Latest()
	if errors.Is(err, store.ErrNotFound) {
		jsonErr(w, http.StatusNotFound, "no runs yet")
		return
	}
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	jsonResp(w, http.StatusOK, toStudyResponses(run.Effects))
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// toListEntry maps a stored run to its list representation.
func toListEntry(run types.Run) RunListEntry {
	return RunListEntry{
		ID:         run.ID,
		Label:      run.Label,
		CreatedAt:  run.CreatedAt.UTC().Format(time.RFC3339),
		StudyCount: run.Summary.K,
		Effect:     run.Summary.Effect,
		CILow:      run.Summary.CILow,
		CIHigh:     run.Summary.CIHigh,
		Degenerate: run.Summary.Degenerate,
	}
}

// toRunResponse maps a stored run to its full JSON representation.
func toRunResponse(run types.Run) RunResponse {
	return RunResponse{
		ID:        run.ID,
		Label:     run.Label,
		Dataset:   run.Dataset,
		CreatedAt: run.CreatedAt.UTC().Format(time.RFC3339),
		Studies:   toStudyResponses(run.Effects),
		Summary:   toSummaryResponse(run.Summary),
	}
}

func toSummaryResponse(s types.Summary) SummaryResponse {
	return SummaryResponse{
		Effect:     s.Effect,
		SE:         s.SE,
		CILow:      s.CILow,
		CIHigh:     s.CIHigh,
		Level:      s.Level,
		K:          s.K,
		DF:         s.DF,
		Q:          s.Q,
		P:          s.P,
		Degenerate: s.Degenerate,
	}
}

func toStudyResponses(effects []types.Effect) []StudyResponse {
	var totalWeight float64
	for _, e := range effects {
		totalWeight += e.Weight()
	}

	out := make([]StudyResponse, 0, len(effects))
	for _, e := range effects {
		resp := StudyResponse{
			Author:   e.Study.Author,
			Year:     e.Study.Year,
			NTx:      e.Study.NTx,
			NCont:    e.Study.NCont,
			MTx:      e.Study.MTx,
			MCont:    e.Study.MCont,
			SDTx:     e.Study.SDTx,
			SDCont:   e.Study.SDCont,
			G:        e.G,
			Variance: e.Variance,
		}
		if totalWeight > 0 {
			resp.WeightPct = e.Weight() / totalWeight * 100
		}
		out = append(out, resp)
	}
	return out
}
