package poller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ValidateTimeout bounds the setup-time connectivity check.
const ValidateTimeout = 10 * time.Second

// ErrCannotConnect is returned by [Validate] when the source cannot be
// used.
var ErrCannotConnect = errors.New("cannot connect")

// Validate checks that request points at a reachable stats CSV export.
//
// The endpoint must answer 200 with a body mentioning the pxname column.
// Every failure wraps [ErrCannotConnect].
func Validate(ctx context.Context, client *Client, request Request) error {
	resp := client.Fetch(ctx, request, ValidateTimeout)

	if resp.Error != nil {
		return fmt.Errorf("%w: %w", ErrCannotConnect, resp.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP status %d", ErrCannotConnect, resp.StatusCode)
	}
	if !strings.Contains(string(resp.Body), "pxname") {
		return fmt.Errorf("%w: response is not a stats CSV export", ErrCannotConnect)
	}
	return nil
}
