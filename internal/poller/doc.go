// Package poller fetches HAProxy stats exports on a schedule.
//
// This package is internal to hapulse and handles the periodic polling of
// one stats endpoint per configured source.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with TLS toggle, basic auth, and size limits
//   - [Fetcher]: One GET plus CSV parsing, failures normalized to [FetchError]
//   - [Coordinator]: Fixed-interval schedule holding the latest snapshot
//   - [Validate]: Setup-time check that a URL serves a stats export
//
// Users of the hapulse library should not need to interact with this
// package directly. Configuration is done through the main hapulse package.
package poller
