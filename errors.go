package hapulse

import "github.com/jpalmerr/hapulse/internal/poller"

// Errors reported by polls and setup validation. Match them with errors.Is.
var (
	// ErrConnectivity matches a non-200 response or transport failure.
	ErrConnectivity = poller.ErrConnectivity

	// ErrFetchTimeout matches a fetch that exceeded its 15 second deadline.
	ErrFetchTimeout = poller.ErrFetchTimeout

	// ErrCannotConnect is returned by setup validation when a source is
	// unreachable or does not serve a stats CSV export.
	ErrCannotConnect = poller.ErrCannotConnect
)
