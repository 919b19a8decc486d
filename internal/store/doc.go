// Package store persists analysis runs in SQLite.
//
// Runs are immutable snapshots: Put only ever inserts, and a duplicate
// run ID is an error rather than an update. Summary columns are
// denormalized for listing; the full run (studies, effects, summary)
// travels as a JSON payload.
package store
