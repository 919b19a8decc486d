package effectsize

import (
	"fmt"
	"math"

	"github.com/metapool/metapool/pkg/types"
)

// Magnitude labels returned by Magnitude.
const (
	MagnitudeNegligible = "negligible"
	MagnitudeSmall      = "small"
	MagnitudeMedium     = "medium"
	MagnitudeLarge      = "large"
)

// Conventional interpretation thresholds on |g|.
const (
	thresholdSmall  = 0.2
	thresholdMedium = 0.5
	thresholdLarge  = 0.8
)

// Compute derives the Hedges' g effect size and its sampling variance
// from one study's raw sample statistics.
//
//	sdPooled = sqrt(((n1-1)·sd1² + (n2-1)·sd2²) / (n1+n2-2))
//	d        = (m1 - m2) / sdPooled
//	J        = 1 - 3/(4·(n1+n2-2) - 1)
//	g        = J·d
//	v        = (n1+n2)/(n1·n2) + g²/(2·(n1+n2))
//
// Compute is pure: it never modifies the study and has no side effects.
// Degenerate inputs (either arm smaller than 2, a non-positive standard
// deviation) fail with an error wrapping types.ErrInvalidInput rather
// than producing NaN or Inf.
func Compute(s types.Study) (types.Effect, error) {
	if s.NTx < 2 || s.NCont < 2 {
		return types.Effect{}, fmt.Errorf(
			"effectsize: study %q: both arms need n ≥ 2, got n_tx=%d n_cont=%d: %w",
			s.Author, s.NTx, s.NCont, types.ErrInvalidInput)
	}
	if s.SDTx <= 0 || s.SDCont <= 0 {
		return types.Effect{}, fmt.Errorf(
			"effectsize: study %q: standard deviations must be > 0, got sd_tx=%g sd_cont=%g: %w",
			s.Author, s.SDTx, s.SDCont, types.ErrInvalidInput)
	}

	n1, n2 := float64(s.NTx), float64(s.NCont)
	df := n1 + n2 - 2

	sdPooled := math.Sqrt(((n1-1)*s.SDTx*s.SDTx + (n2-1)*s.SDCont*s.SDCont) / df)
	d := (s.MTx - s.MCont) / sdPooled
	j := 1 - 3/(4*df-1)
	g := j * d
	v := (n1+n2)/(n1*n2) + g*g/(2*(n1+n2))

	return types.Effect{Study: s, G: g, Variance: v}, nil
}

// ComputeAll derives effect sizes for every study, preserving input
// order. The first degenerate study aborts the whole batch — partial
// effect tables are never returned.
func ComputeAll(studies []types.Study) ([]types.Effect, error) {
	effects := make([]types.Effect, 0, len(studies))
	for i, s := range studies {
		e, err := Compute(s)
		if err != nil {
			return nil, fmt.Errorf("study %d: %w", i+1, err)
		}
		effects = append(effects, e)
	}
	return effects, nil
}

// Magnitude maps |g| onto the conventional interpretation bands.
func Magnitude(g float64) string {
	switch abs := math.Abs(g); {
	case abs < thresholdSmall:
		return MagnitudeNegligible
	case abs < thresholdMedium:
		return MagnitudeSmall
	case abs < thresholdLarge:
		return MagnitudeMedium
	default:
		return MagnitudeLarge
	}
}
