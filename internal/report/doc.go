// Package report writes the markdown analysis report: the effect-size
// table, the pooled fixed-effect summary, and a heterogeneity
// paragraph.
//
// The homogeneity reading ("p > .05 — no evidence against homogeneity")
// is worded prose in the report, not a decision the pipeline acts on.
package report
