package hapulse

import (
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// hpConfig holds mutable state during HAPulse construction.
type hpConfig struct {
	title            string
	sources          []Source
	port             int
	logger           *slog.Logger
	registry         *prometheus.Registry
	validateOnStart  bool
	refreshCallbacks []func(RefreshResult)
}

// Option is a function that configures a [HAPulse] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithSource], [WithSources], [WithPort], [WithLogger],
// [WithTitle], [WithRefreshCallback], [WithSetupValidation],
// [WithPrometheusRegistry].
type Option func(*hpConfig) error

// WithSource adds a single [Source] to poll.
//
// Can be called multiple times to add multiple sources. At least one
// source must be configured for [New] to succeed.
//
// Example:
//
//	pb, err := hapulse.New(
//	    hapulse.WithSource(edge),
//	    hapulse.WithSource(internal),
//	)
func WithSource(s Source) Option {
	return func(cfg *hpConfig) error {
		cfg.sources = append(cfg.sources, s)
		return nil
	}
}

// WithSources adds multiple [Source] values, typically the output of
// [NewSourceGrid]. Equivalent to calling [WithSource] multiple times.
func WithSources(sources ...Source) Option {
	return func(cfg *hpConfig) error {
		cfg.sources = append(cfg.sources, sources...)
		return nil
	}
}

// WithPort sets the HTTP port for the API and metrics server.
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *hpConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the HAPulse instance.
//
// If not specified, [slog.Default] is used. Each source logs through a child
// logger carrying a "source" attribute.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	hp, err := hapulse.New(
//	    hapulse.WithSource(src),
//	    hapulse.WithLogger(logger),
//	)
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *hpConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithTitle sets the title reported by /api/sources.
//
// If not specified, defaults to "hapulse".
func WithTitle(title string) Option {
	return func(cfg *hpConfig) error {
		cfg.title = title
		return nil
	}
}

// WithRefreshCallback registers a function to be called after every poll.
//
// The callback receives a [RefreshResult] once the source's entities have
// been updated, so reads from the HTTP API inside the callback observe the
// new values. Multiple callbacks run in registration order.
//
// IMPORTANT: Callbacks must be non-blocking. They run on the source's polling
// goroutine and a slow callback delays that source's next poll.
//
// Panics within callbacks are recovered and logged with a correlation id;
// they do not stop polling.
//
// Example:
//
//	hp, err := hapulse.New(
//	    hapulse.WithSource(src),
//	    hapulse.WithRefreshCallback(func(r hapulse.RefreshResult) {
//	        if r.ConsecutiveFailures == 3 {
//	            log.Printf("ALERT: %s unreachable: %v", r.Source, r.Err)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithRefreshCallback(cb func(RefreshResult)) Option {
	return func(cfg *hpConfig) error {
		if cb == nil {
			return nil
		}
		cfg.refreshCallbacks = append(cfg.refreshCallbacks, cb)
		return nil
	}
}

// WithSetupValidation makes [HAPulse.Start] check every source with a single
// request before polling begins. Start then fails with an error matching
// [ErrCannotConnect] when a source is unreachable or does not serve a stats
// CSV export.
func WithSetupValidation(enabled bool) Option {
	return func(cfg *hpConfig) error {
		cfg.validateOnStart = enabled
		return nil
	}
}

// WithPrometheusRegistry exposes metrics through reg instead of a private
// registry. The caller's registry is served at /metrics as is; hapulse
// registers its collectors on Start and unregisters them when Start returns.
//
// Without this option a private registry with Go runtime and process
// collectors is used.
//
// Returns an error if reg is nil.
func WithPrometheusRegistry(reg *prometheus.Registry) Option {
	return func(cfg *hpConfig) error {
		if reg == nil {
			return errors.New("prometheus registry cannot be nil")
		}
		cfg.registry = reg
		return nil
	}
}
