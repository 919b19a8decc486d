// Package config loads and validates the YAML configuration shared by
// the metapool CLI and the report server.
//
// config.go provides Load → defaults → validate in that order: missing
// optional fields are filled with defaults before validation runs.
//
// watch.go provides a debounced fsnotify watcher used for dataset
// hot-reload: editors commonly save via rename, so create events are
// treated like writes and the watched path is re-added after each
// reload.
package config
