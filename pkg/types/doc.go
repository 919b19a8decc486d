// Package types defines the shared data model of a meta-analysis run:
// raw study records, derived effect sizes, the pooled summary, and the
// immutable run snapshot. These are the canonical representations used
// by the pipeline, the run store, and the JSON API.
package types
