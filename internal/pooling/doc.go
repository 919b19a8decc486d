// Package pooling combines per-study effect sizes into one fixed-effect
// summary by inverse-variance weighting.
//
// FixedEffect computes the weighted summary effect, its standard error
// and z-based confidence interval, and Cochran's Q homogeneity statistic
// with a chi-square p-value on k-1 degrees of freedom. A single-study
// collection is a reported degenerate case — the summary collapses to
// that study's effect and no homogeneity test is produced.
//
// Summation always follows the input collection's order so repeated
// runs over the same collection are bit-identical.
package pooling
