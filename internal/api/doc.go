// Package api serves the JSON HTTP endpoints of the analysis server.
// It reads run snapshots from the run store and exposes them under
// /api/v1/*, alongside the rendered plot files and a Prometheus
// /metrics exposition.
package api
