package hapulse

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jpalmerr/hapulse/internal/metric"
)

// sourceConfig holds mutable state during source construction.
type sourceConfig struct {
	username     string
	password     string
	verifySSL    bool
	scanInterval time.Duration
	unit         metric.Unit
	scope        string
}

// SourceOption is a function that configures a [Source] during construction.
//
// Options return an error if validation fails.
type SourceOption func(*sourceConfig) error

// WithBasicAuth sets HTTP Basic credentials for the stats endpoint.
//
// Credentials are sent only when at least one of them is non-empty, so
// WithBasicAuth("", "") leaves authentication disabled.
func WithBasicAuth(username, password string) SourceOption {
	return func(cfg *sourceConfig) error {
		cfg.username = username
		cfg.password = password
		return nil
	}
}

// WithVerifySSL enables or disables TLS certificate verification.
// Verification is disabled by default; HAProxy stats listeners commonly use
// self-signed certificates.
func WithVerifySSL(verify bool) SourceOption {
	return func(cfg *sourceConfig) error {
		cfg.verifySSL = verify
		return nil
	}
}

// WithScanInterval sets the time between polls.
//
// The interval must be between 5 seconds and 1 hour. Defaults to 30 seconds.
// The fetch timeout is fixed at 15 seconds regardless of the interval.
//
// Example:
//
//	src, err := hapulse.NewSource("Edge", url,
//	    hapulse.WithScanInterval(10 * time.Second),
//	)
func WithScanInterval(d time.Duration) SourceOption {
	return func(cfg *sourceConfig) error {
		if d < minScanInterval {
			return fmt.Errorf("scan interval must be at least %s", minScanInterval)
		}
		if d > maxScanInterval {
			return fmt.Errorf("scan interval must not exceed %s", maxScanInterval)
		}
		cfg.scanInterval = d
		return nil
	}
}

// WithDataSizeUnit sets the unit byte counters are reported in: "B", "kB",
// "MB", "GB", or "TB". Matching is case-sensitive. Defaults to "MB".
func WithDataSizeUnit(unit string) SourceOption {
	return func(cfg *sourceConfig) error {
		u, err := metric.ParseUnit(unit)
		if err != nil {
			return err
		}
		cfg.unit = u
		return nil
	}
}

// WithScope sets the identifier that prefixes the source's entity ids.
//
// Use a fixed scope to keep entity ids stable when the URL changes.
func WithScope(scope string) SourceOption {
	return func(cfg *sourceConfig) error {
		if strings.TrimSpace(scope) == "" {
			return errors.New("scope cannot be empty")
		}
		cfg.scope = scope
		return nil
	}
}
