package hapulse

import (
	"errors"
	"fmt"
)

// gridConfig holds configuration during source grid construction.
type gridConfig struct {
	urlTemplate string
	dimensions  map[string][]string
	sourceOpts  []SourceOption
}

// GridOption configures source grid generation for [NewSourceGrid].
type GridOption func(*gridConfig) error

// WithURLTemplate sets the URL template for source generation.
// The template uses Go's text/template syntax with dimension keys as variables.
//
// Example:
//
//	WithURLTemplate("http://{{.host}}:8404/stats;csv")
//
// Returns an error if the template string is empty.
func WithURLTemplate(tmpl string) GridOption {
	return func(cfg *gridConfig) error {
		if tmpl == "" {
			return errors.New("URL template required")
		}
		cfg.urlTemplate = tmpl
		return nil
	}
}

// WithDimensions sets the dimension values for cartesian product expansion.
// Each key in the map becomes a template variable.
//
// Returns an error if the map is empty, any dimension has no values,
// or any value is an empty string.
func WithDimensions(dims map[string][]string) GridOption {
	return func(cfg *gridConfig) error {
		if len(dims) == 0 {
			return errors.New("at least one dimension required")
		}
		for k, vals := range dims {
			if len(vals) == 0 {
				return fmt.Errorf("dimension '%s' has no values", k)
			}
			seen := make(map[string]struct{}, len(vals))
			for i, v := range vals {
				if v == "" {
					return fmt.Errorf("dimension '%s' contains empty value at index %d", k, i)
				}
				if _, dup := seen[v]; dup {
					return fmt.Errorf("dimension '%s' has duplicate value %q", k, v)
				}
				seen[v] = struct{}{}
			}
		}
		cfg.dimensions = dims
		return nil
	}
}

// WithGridSourceOptions applies source options to every generated source.
// Generated sources that share a [WithScope] scope are rejected by [New].
func WithGridSourceOptions(opts ...SourceOption) GridOption {
	return func(cfg *gridConfig) error {
		for _, opt := range opts {
			if opt == nil {
				return errors.New("source option cannot be nil")
			}
		}
		cfg.sourceOpts = append(cfg.sourceOpts, opts...)
		return nil
	}
}
