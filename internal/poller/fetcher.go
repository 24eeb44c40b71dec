package poller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jpalmerr/hapulse/internal/stats"
)

// FetchTimeout bounds a single stats fetch. It is independent of the scan
// interval.
const FetchTimeout = 15 * time.Second

var (
	// ErrConnectivity matches fetch failures caused by a non-200 response or
	// a transport error.
	ErrConnectivity = errors.New("cannot reach stats endpoint")

	// ErrFetchTimeout matches fetch failures caused by [FetchTimeout]
	// elapsing.
	ErrFetchTimeout = errors.New("stats fetch timed out")
)

// FetchError reports a failed stats fetch.
//
// FetchError matches [ErrFetchTimeout] when the deadline elapsed and
// [ErrConnectivity] otherwise, and also unwraps to the underlying cause.
type FetchError struct {
	URL string

	// StatusCode is the HTTP status, or zero when no response was received.
	StatusCode int

	// Err is the transport cause, nil for non-200 responses.
	Err error

	timeout bool
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: HTTP status %d", e.URL, e.StatusCode)
	}
	if e.timeout {
		return fmt.Sprintf("fetch %s: timed out: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the error kind followed by the cause.
func (e *FetchError) Unwrap() []error {
	kind := ErrConnectivity
	if e.timeout {
		kind = ErrFetchTimeout
	}
	if e.Err == nil {
		return []error{kind}
	}
	return []error{kind, e.Err}
}

// SnapshotFetcher produces one snapshot per call.
type SnapshotFetcher interface {
	Fetch(ctx context.Context) (*stats.Snapshot, error)
}

// Fetcher fetches and parses the stats export of one source.
//
// Fetcher does not retry; the [Coordinator] schedule provides the retry
// cadence.
type Fetcher struct {
	client  *Client
	request Request
	timeout time.Duration
}

// NewFetcher creates a [Fetcher] for request using client.
func NewFetcher(client *Client, request Request) *Fetcher {
	return &Fetcher{
		client:  client,
		request: request,
		timeout: FetchTimeout,
	}
}

// Fetch issues one GET and parses the body into a snapshot.
//
// Any non-200 status, transport failure, or timeout yields a *[FetchError].
func (f *Fetcher) Fetch(ctx context.Context) (*stats.Snapshot, error) {
	resp := f.client.Fetch(ctx, f.request, f.timeout)

	if resp.Error != nil {
		return nil, &FetchError{
			URL:        f.request.URL,
			StatusCode: resp.StatusCode,
			Err:        resp.Error,
			timeout:    errors.Is(resp.Error, context.DeadlineExceeded),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: f.request.URL, StatusCode: resp.StatusCode}
	}

	return stats.Parse(string(resp.Body)), nil
}

// Close releases idle connections held by the fetcher's client.
func (f *Fetcher) Close() {
	f.client.Close()
}
