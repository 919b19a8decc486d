package pooling

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/metapool/metapool/pkg/types"
)

// DefaultLevel is the confidence level used when the caller passes 0.
const DefaultLevel = 0.95

// FixedEffect pools an ordered collection of effect sizes under the
// fixed-effect model: every study is assumed to estimate one common
// true effect, so each is weighted purely by its inverse sampling
// variance.
//
//	wᵢ = 1/vᵢ
//	θ̂  = Σ wᵢyᵢ / Σ wᵢ
//	SE = sqrt(1/Σ wᵢ)
//	CI = θ̂ ± z·SE with z the standard-normal quantile for level
//	Q  = Σ wᵢ(yᵢ-θ̂)²,  p from χ²(k-1)
//
// With a single study the heterogeneity test has zero degrees of
// freedom; the returned Summary carries the study's own effect and SE
// with Degenerate set instead of a meaningless Q.
//
// FixedEffect is pure and deterministic: the sums run in the input
// collection's order, so the same collection always reproduces the
// same Summary.
func FixedEffect(effects []types.Effect, level float64) (types.Summary, error) {
	if len(effects) == 0 {
		return types.Summary{}, fmt.Errorf("pooling: empty effect-size collection: %w", types.ErrInvalidInput)
	}
	if level == 0 {
		level = DefaultLevel
	}
	if level <= 0 || level >= 1 {
		return types.Summary{}, fmt.Errorf("pooling: confidence level %g outside (0,1): %w", level, types.ErrInvalidInput)
	}
	for i, e := range effects {
		if e.Variance <= 0 {
			return types.Summary{}, fmt.Errorf(
				"pooling: effect %d (%s): sampling variance %g must be > 0: %w",
				i+1, e.Study.Author, e.Variance, types.ErrInvalidInput)
		}
	}

	z := distuv.UnitNormal.Quantile(0.5 + level/2)
	k := len(effects)

	if k == 1 {
		e := effects[0]
		se := math.Sqrt(e.Variance)
		return types.Summary{
			Effect:     e.G,
			SE:         se,
			CILow:      e.G - z*se,
			CIHigh:     e.G + z*se,
			Level:      level,
			K:          1,
			DF:         0,
			Degenerate: true,
		}, nil
	}

	ys := make([]float64, k)
	ws := make([]float64, k)
	var sumW float64
	for i, e := range effects {
		ys[i] = e.G
		ws[i] = 1 / e.Variance
		sumW += ws[i]
	}

	theta := stat.Mean(ys, ws)
	se := math.Sqrt(1 / sumW)

	var q float64
	for i := range ys {
		dev := ys[i] - theta
		q += ws[i] * dev * dev
	}

	chi2 := distuv.ChiSquared{K: float64(k - 1)}
	return types.Summary{
		Effect: theta,
		SE:     se,
		CILow:  theta - z*se,
		CIHigh: theta + z*se,
		Level:  level,
		K:      k,
		DF:     k - 1,
		Q:      q,
		P:      chi2.Survival(q),
	}, nil
}
