// Package server provides the HTTP surface of hapulse.
//
//   - REST API: entity states at "/api/entities", source health at
//     "/api/sources", redacted diagnostics at "/api/diagnostics"
//   - Server-Sent Events: entity updates at "/api/sse"
//   - Prometheus exposition at "/metrics"
//   - Liveness at "/healthz"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the hapulse library should not need to interact with this
// package directly. The server is started by [hapulse.HAPulse.Start].
package server
