package api

import (
	"errors"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/metapool/metapool/internal/store"
)

// metrics returns GET /metrics — a Prometheus text exposition of the
// store state and the latest pooled result.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	n, err := h.store.Count()
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	families := []*dto.MetricFamily{
		gaugeFamily("metapool_runs_total", "Number of stored analysis runs.", float64(n)),
	}

	latest, err := h.store.Latest()
	switch {
	case errors.Is(err, store.ErrNotFound):
		// No runs yet — expose the counter alone.
	case err != nil:
		jsonErr(w, http.StatusInternalServerError, "store unavailable")
		return
	default:
		s := latest.Summary
		families = append(families,
			gaugeFamily("metapool_latest_effect", "Pooled effect estimate of the latest run.", s.Effect),
			gaugeFamily("metapool_latest_se", "Standard error of the latest pooled estimate.", s.SE),
			gaugeFamily("metapool_latest_ci_low", "Lower confidence bound of the latest pooled estimate.", s.CILow),
			gaugeFamily("metapool_latest_ci_high", "Upper confidence bound of the latest pooled estimate.", s.CIHigh),
			gaugeFamily("metapool_latest_q", "Cochran's Q statistic of the latest run.", s.Q),
			gaugeFamily("metapool_latest_q_pvalue", "Homogeneity test p-value of the latest run.", s.P),
			gaugeFamily("metapool_latest_studies", "Number of studies pooled in the latest run.", float64(s.K)),
		)
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			// Headers are already out; nothing sensible left to do.
			return
		}
	}
}

// gaugeFamily builds a single-sample gauge MetricFamily.
func gaugeFamily(name, help string, value float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{
			{Gauge: &dto.Gauge{Value: proto.Float64(value)}},
		},
	}
}
