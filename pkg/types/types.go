package types

import (
	"errors"
	"strconv"
	"time"
)

// ErrInvalidInput marks degenerate statistical input: group sizes too
// small for the pooled variance, non-positive standard deviations,
// non-positive sampling variances, or an empty study set. Callers test
// for it with errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// Study is one primary study's raw sample statistics, one CSV row.
// The treatment arm carries the _tx suffix in the input table, the
// control arm _cont.
type Study struct {
	// Author is the first-author label used for display and plot ordering.
	Author string `json:"author"`

	// Year is the publication year.
	Year int `json:"year"`

	// NTx and NCont are the per-arm sample sizes. Both must be ≥ 2 for
	// the pooled standard deviation and the small-sample correction to
	// be defined.
	NTx   int `json:"n_tx"`
	NCont int `json:"n_cont"`

	// MTx and MCont are the per-arm outcome means.
	MTx   float64 `json:"m_tx"`
	MCont float64 `json:"m_cont"`

	// SDTx and SDCont are the per-arm standard deviations; both must be > 0.
	SDTx   float64 `json:"sd_tx"`
	SDCont float64 `json:"sd_cont"`
}

// Label returns the conventional "Author (Year)" display label.
func (s Study) Label() string {
	if s.Year == 0 {
		return s.Author
	}
	return s.Author + " (" + strconv.Itoa(s.Year) + ")"
}

// Effect is the standardized-mean-difference effect size derived from
// one Study. Immutable once computed; the pipeline never revises an
// Effect in place.
type Effect struct {
	Study Study `json:"study"`

	// G is the bias-corrected standardized mean difference (Hedges' g).
	G float64 `json:"g"`

	// Variance is the sampling variance of G.
	Variance float64 `json:"variance"`
}

// Weight returns the inverse-variance weight 1/Variance.
func (e Effect) Weight() float64 {
	return 1 / e.Variance
}

// Summary is the pooled fixed-effect result over an ordered effect-size
// collection. Results are immutable snapshots: re-pooling an extended
// collection produces a new Summary, never a mutation of the old one.
type Summary struct {
	// Effect is the inverse-variance-weighted summary effect θ̂.
	Effect float64 `json:"effect"`

	// SE is the standard error of the summary effect, sqrt(1/Σw).
	SE float64 `json:"se"`

	// CILow and CIHigh bound the z-based confidence interval at Level.
	CILow  float64 `json:"ci_low"`
	CIHigh float64 `json:"ci_high"`

	// Level is the confidence level the interval was computed at, e.g. 0.95.
	Level float64 `json:"level"`

	// K is the number of studies pooled.
	K int `json:"k"`

	// DF is the heterogeneity degrees of freedom, K-1.
	DF int `json:"df"`

	// Q is Cochran's homogeneity statistic and P its chi-square p-value
	// on DF degrees of freedom. Both are zero when Degenerate is set.
	Q float64 `json:"q"`
	P float64 `json:"p"`

	// Degenerate is set for a single-study collection: the summary is
	// that study's effect and the homogeneity test is undefined (zero
	// degrees of freedom), not merely non-significant.
	Degenerate bool `json:"degenerate"`
}

// Run is one immutable analysis snapshot: the input studies, their
// derived effects in input order, and the pooled summary.
type Run struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`

	// Dataset is the path the studies were loaded from.
	Dataset string `json:"dataset"`

	Effects []Effect `json:"effects"`
	Summary Summary  `json:"summary"`
}

// Studies returns the raw study records in input order.
func (r Run) Studies() []Study {
	out := make([]Study, len(r.Effects))
	for i, e := range r.Effects {
		out[i] = e.Study
	}
	return out
}
