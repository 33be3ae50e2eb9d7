// Package api is the inbound JSON layer: it validates POST /post bodies,
// hands attempts to the orchestrator and maps outcomes to HTTP responses.
// It also serves /health, /api/docs, /api/audit and /metrics.
package api
