// Package pipeline runs the full analysis: load the study table,
// derive effect sizes in input order, pool them under the fixed-effect
// model, render the plots, and write the report.
//
// Each run produces a fresh immutable types.Run — re-analyzing an
// extended dataset yields a new snapshot, never a mutation of an
// earlier one. The clock and run-ID source are injectable so tests are
// deterministic.
//
// Watch wraps Run in a debounced dataset watcher for the live report
// server: every settled change to the study table triggers a re-run
// and hands the new snapshot to the caller.
package pipeline
