package hapulse

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/hapulse/internal/metric"
)

const (
	// DefaultName is the display name used by configurations that do not set one.
	DefaultName = "HAProxy"

	defaultScanInterval = 30 * time.Second
	minScanInterval     = 5 * time.Second
	maxScanInterval     = time.Hour
)

// Source is one HAProxy stats endpoint to poll.
//
// Source is immutable after creation via [NewSource]. Fields are private
// with getter methods.
//
// Sources are configured using [SourceOption] functions such as
// [WithBasicAuth], [WithVerifySSL], [WithScanInterval],
// [WithDataSizeUnit], and [WithScope].
type Source struct {
	name         string
	url          string
	username     string
	password     string
	verifySSL    bool
	scanInterval time.Duration
	unit         metric.Unit
	scope        string
}

// Name returns the source's display name.
// It labels the source's metrics and prefixes its device names.
func (s Source) Name() string {
	return s.name
}

// URL returns the stats CSV endpoint, typically ending in ";csv".
func (s Source) URL() string {
	return s.url
}

// Username returns the Basic auth user name, empty when unset.
func (s Source) Username() string {
	return s.username
}

// Password returns the Basic auth password, empty when unset.
func (s Source) Password() string {
	return s.password
}

// VerifySSL reports whether TLS certificates are verified. Defaults to false.
func (s Source) VerifySSL() bool {
	return s.verifySSL
}

// ScanInterval returns the time between polls. Defaults to 30 seconds.
func (s Source) ScanInterval() time.Duration {
	return s.scanInterval
}

// DataSizeUnit returns the unit byte counters are reported in. Defaults to MB.
func (s Source) DataSizeUnit() string {
	return string(s.unit)
}

// Scope returns the identifier that prefixes the source's entity ids.
//
// Unless set with [WithScope], the scope is a UUID derived from the name and
// URL, so it is stable across restarts.
func (s Source) Scope() string {
	return s.scope
}

// NewSource creates a [Source] with the given name, stats URL, and options.
//
// The rawURL must use the http or https scheme.
//
// Returns an error if the name is empty, the URL is invalid, or an option
// fails validation.
//
// Example:
//
//	src, err := hapulse.NewSource("Edge", "http://10.0.0.1:8404/stats;csv",
//	    hapulse.WithBasicAuth("admin", os.Getenv("HAPROXY_PASSWORD")),
//	    hapulse.WithScanInterval(10 * time.Second),
//	)
func NewSource(name, rawURL string, opts ...SourceOption) (Source, error) {
	if strings.TrimSpace(name) == "" {
		return Source{}, errors.New("source name cannot be empty")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Source{}, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return Source{}, errors.New("URL must have an http:// or https:// scheme")
	}
	if parsedURL.Host == "" {
		return Source{}, errors.New("URL must have a host")
	}

	cfg := &sourceConfig{
		scanInterval: defaultScanInterval,
		unit:         metric.DefaultUnit,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Source{}, err
		}
	}

	scope := cfg.scope
	if scope == "" {
		scope = DefaultScope(name, rawURL)
	}

	return Source{
		name:         name,
		url:          rawURL,
		username:     cfg.username,
		password:     cfg.password,
		verifySSL:    cfg.verifySSL,
		scanInterval: cfg.scanInterval,
		unit:         cfg.unit,
		scope:        scope,
	}, nil
}

// DefaultScope returns the scope assigned to a source without [WithScope].
func DefaultScope(name, rawURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(rawURL+"#"+name)).String()
}
