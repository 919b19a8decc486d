// Package ws pushes analysis runs to WebSocket clients. A Hub holds
// the active connections; the pipeline watcher hands it each newly
// stored run and the hub fans the run out to every client. New clients
// receive the latest stored run immediately on connect.
package ws
