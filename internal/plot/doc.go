// Package plot renders the two standard meta-analysis figures.
//
// The forest plot draws one row per study — a square sized by the
// study's inverse-variance weight at its effect size, with confidence
// whiskers — and a summary diamond spanning the pooled confidence
// interval. The funnel plot draws effect size against standard error
// on an inverted axis with the pseudo-95% funnel around the summary
// effect, the usual visual check for publication bias.
//
// Both renderers consume the ordered effect collection and the pooled
// summary and never feed back into the model.
package plot
