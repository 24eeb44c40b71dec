// Package hapulse polls HAProxy CSV statistics endpoints and exposes the
// derived per-object metrics over HTTP.
//
// Each configured [Source] is fetched on its own scan interval. Every
// HAProxy object (frontend, backend, or server) found in the export becomes a
// set of entities: session and error counters, byte counts converted to a
// configurable unit, and up/down availability. Entities are discovered on
// every successful poll and are never removed while the process runs.
//
// # Quick Start
//
//	src, _ := hapulse.NewSource("Edge", "http://10.0.0.1:8404/stats;csv")
//	hp, _ := hapulse.New(hapulse.WithSource(src))
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	hp.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// Sources are configured with [SourceOption] values:
//
//	src, err := hapulse.NewSource("Edge", "https://lb.example.com/stats;csv",
//	    hapulse.WithBasicAuth("admin", os.Getenv("HAPROXY_PASSWORD")),
//	    hapulse.WithVerifySSL(true),
//	    hapulse.WithScanInterval(10 * time.Second),
//	    hapulse.WithDataSizeUnit("GB"),
//	)
//
// [NewSourceGrid] builds one source per combination of URL template
// dimensions, for fleets of identically configured load balancers.
//
// # HTTP API
//
// While running, the server on the configured port exposes:
//
//   - GET /api/entities: current entity states as JSON (?source= filters)
//   - GET /api/sources: polling health per source
//   - GET /api/sse: entity updates as Server-Sent Events
//   - GET /api/diagnostics: [HAPulse.Diagnostics] with credentials redacted
//   - GET /metrics: Prometheus exposition of every entity plus poll metrics
//   - GET /healthz: 200 while every source is available, 503 otherwise
//
// # Architecture
//
// hapulse consists of several internal packages (under internal/):
//
//   - internal/stats: CSV export parsing into immutable snapshots
//   - internal/poller: HTTP fetching and the per-source polling loop
//   - internal/metric: metric descriptors and value projection
//   - internal/discovery: entity ids and the known-entity registry
//   - internal/store: in-memory entity state with pub/sub
//   - internal/exporter: Prometheus collector and poll metrics
//   - internal/server: HTTP server with REST API and Server-Sent Events
//
// The internal packages are not part of the public API and may change
// without notice.
package hapulse
