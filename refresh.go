package hapulse

import "time"

// RefreshResult describes one completed poll of a [Source].
//
// RefreshResult is delivered to callbacks registered with
// [WithRefreshCallback] after the source's entities have been updated.
type RefreshResult struct {
	// Source is the polled source's display name.
	Source string

	// Scope is the source's identifier.
	Scope string

	// Err is nil when the poll succeeded. Failed polls keep the previous
	// snapshot; errors.Is(Err, ErrConnectivity) or ErrFetchTimeout tells
	// the causes apart.
	Err error

	// ConsecutiveFailures counts failed polls since the last success.
	ConsecutiveFailures int

	// Latency is the time the fetch took.
	Latency time.Duration

	// CheckedAt is when the poll completed.
	CheckedAt time.Time

	// Rows is the number of objects in the current snapshot.
	Rows int

	// Discovered lists ids of entities first seen in this poll.
	Discovered []string

	// Entities is the total number of known entities.
	Entities int
}

// Available reports whether the poll succeeded.
func (r RefreshResult) Available() bool {
	return r.Err == nil
}
