// Package effectsize converts raw per-study sample statistics into
// standardized-mean-difference effect sizes.
//
// estimator.go provides the pure Compute(Study) function that derives
// Hedges' g — Cohen's d scaled by the small-sample bias correction
// J = 1 - 3/(4·df - 1) — together with its sampling variance.
//
// Magnitude maps an effect size onto the conventional interpretation
// bands (negligible < .2 ≤ small < .5 ≤ medium < .8 ≤ large). The
// bands are a reporting annotation, nothing in the pipeline branches
// on them.
package effectsize
