package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State     string `json:"state"`
	RunCount  int    `json:"run_count"`
	LatestRun string `json:"latest_run,omitempty"`
	LatestAt  string `json:"latest_at,omitempty"` // RFC3339
}

// RunListEntry is one run in GET /api/v1/runs. It carries the pooled
// summary but not the per-study effects; the full payload is served by
// GET /api/v1/runs/{id}.
type RunListEntry struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	CreatedAt  string  `json:"created_at"` // RFC3339
	StudyCount int     `json:"study_count"`
	Effect     float64 `json:"effect"`
	CILow      float64 `json:"ci_low"`
	CIHigh     float64 `json:"ci_high"`
	Degenerate bool    `json:"degenerate,omitempty"`
}

// RunResponse is the payload for GET /api/v1/runs/{id}.
type RunResponse struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Dataset   string          `json:"dataset"`
	CreatedAt string          `json:"created_at"` // RFC3339
	Studies   []StudyResponse `json:"studies"`
	Summary   SummaryResponse `json:"summary"`
}

// StudyResponse is one study row with its computed effect size.
type StudyResponse struct {
	Author    string  `json:"author"`
	Year      int     `json:"year"`
	NTx       int     `json:"n_tx"`
	NCont     int     `json:"n_cont"`
	MTx       float64 `json:"m_tx"`
	MCont     float64 `json:"m_cont"`
	SDTx      float64 `json:"sd_tx"`
	SDCont    float64 `json:"sd_cont"`
	G         float64 `json:"g"`
	Variance  float64 `json:"variance"`
	WeightPct float64 `json:"weight_pct"`
}

// SummaryResponse is the pooled result of a run.
type SummaryResponse struct {
	Effect     float64 `json:"effect"`
	SE         float64 `json:"se"`
	CILow      float64 `json:"ci_low"`
	CIHigh     float64 `json:"ci_high"`
	Level      float64 `json:"level"`
	K          int     `json:"k"`
	DF         int     `json:"df"`
	Q          float64 `json:"q"`
	P          float64 `json:"p"`
	Degenerate bool    `json:"degenerate"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
