// Package stats parses HAProxy CSV statistics exports into snapshots.
//
// This package is internal to hapulse. It owns the data model shared by the
// rest of the system:
//
//   - [Snapshot]: Immutable result of one successful poll
//   - [ObjectKey]: Identity of a frontend, backend, listener, or server
//   - [Row]: Column name to value mapping for one object
//
// [Parse] is tolerant of its input: malformed lines
// are skipped, rows without a proxy or server name are dropped, and it never
// returns an error.
package stats
