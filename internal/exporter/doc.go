// Package exporter renders discovered entities and poll health as
// Prometheus metrics.
//
// [Collector] reads each source's current snapshot at scrape time, so
// scrapes never trigger a fetch. [PollMetrics] records the outcome of every
// poll.
package exporter
