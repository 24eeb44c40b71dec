// Package config provides YAML configuration parsing for hapulse.
//
// This package enables running hapulse as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Edge LBs
//	port: 8080
//
//	sources:
//	  - name: HAProxy
//	    url: http://192.168.1.1:8822/haproxy?stats;csv
//	    username: ${HAPROXY_USER:-}
//	    password: ${HAPROXY_PASSWORD:-}
//	    scan_interval: 30
//	    data_size_unit: MB
//
//	grids:
//	  - name: Edge
//	    url_template: "http://lb-{{.site}}.internal:8404/stats;csv"
//	    dimensions:
//	      site: [ams, fra]
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/hapulse"
	"github.com/jpalmerr/hapulse/internal/metric"
)

const (
	defaultPort         = 8080
	defaultScanInterval = 30

	minScanInterval = 5
	maxScanInterval = 3600
)

// Config is the root configuration structure for hapulse.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is reported by /api/sources. Defaults to "hapulse" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// ValidateOnStart checks every source with one request before polling.
	ValidateOnStart bool `yaml:"validate_on_start"`

	// Sources defines individual stats endpoints.
	Sources []SourceConfig `yaml:"sources"`

	// Grids defines source grids that expand via cartesian product.
	Grids []GridConfig `yaml:"grids"`
}

// Settings are the per-source polling settings shared by sources and grids.
type Settings struct {
	// Username and Password are HTTP Basic credentials.
	// Both support environment variable substitution.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// VerifySSL enables TLS certificate verification. Defaults to false.
	VerifySSL bool `yaml:"verify_ssl"`

	// ScanInterval is the time between polls in seconds.
	// Defaults to 30; must be between 5 and 3600.
	ScanInterval int `yaml:"scan_interval"`

	// DataSizeUnit is the unit for byte counters: B, kB, MB, GB, or TB.
	// Defaults to MB.
	DataSizeUnit string `yaml:"data_size_unit"`
}

// SourceConfig defines a single HAProxy stats endpoint.
type SourceConfig struct {
	// Name labels the source's metrics. Defaults to "HAProxy".
	Name string `yaml:"name"`

	// ID fixes the source's scope, the prefix of its entity ids.
	// Defaults to a UUID derived from the name and URL.
	ID string `yaml:"id"`

	// URL is the stats CSV endpoint, typically ending in ";csv".
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	Settings `yaml:",inline"`
}

// GridConfig defines a source grid that expands via cartesian product.
//
// For example, with dimensions {site: [ams, fra], n: ["1", "2"]}, the grid
// expands to 4 sources sharing the grid's settings.
type GridConfig struct {
	// Name is the base name for generated sources.
	Name string `yaml:"name"`

	// URLTemplate is a Go template for generating stats URLs.
	// Dimension keys are available as template variables: {{.site}}
	// Supports environment variable substitution in the template.
	URLTemplate string `yaml:"url_template"`

	// Dimensions maps dimension names to their possible values.
	Dimensions map[string][]string `yaml:"dimensions"`

	Settings `yaml:",inline"`
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read, parsed, or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in url, url_template, username, and
// password. Defaults are applied for port, source names, scan_interval, and
// data_size_unit.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SourceCount returns the number of sources the config expands to.
func (c *Config) SourceCount() int {
	n := len(c.Sources)
	for _, g := range c.Grids {
		size := 1
		for _, vals := range g.Dimensions {
			size *= len(vals)
		}
		n += size
	}
	return n
}

// expandAndValidate expands environment variables, applies defaults, and
// validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	names := make(map[string]int, len(c.Sources))
	ids := make(map[string]int, len(c.Sources))

	for i := range c.Sources {
		src := &c.Sources[i]

		if strings.TrimSpace(src.Name) == "" {
			src.Name = hapulse.DefaultName
		}
		where := fmt.Sprintf("sources[%d] (%s)", i, src.Name)

		if prev, dup := names[src.Name]; dup {
			return fmt.Errorf("%s: duplicate name, also used by sources[%d]", where, prev)
		}
		names[src.Name] = i

		if src.ID != "" {
			if prev, dup := ids[src.ID]; dup {
				return fmt.Errorf("%s: duplicate id %q, also used by sources[%d]", where, src.ID, prev)
			}
			ids[src.ID] = i
		}

		if src.URL == "" {
			return fmt.Errorf("%s: url is required", where)
		}
		expanded, err := expandEnvVars(src.URL)
		if err != nil {
			return fmt.Errorf("%s: url: %w", where, err)
		}
		src.URL = expanded

		if err := validateURL(src.URL); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}

		if err := src.Settings.expandAndValidate(where); err != nil {
			return err
		}
	}

	for i := range c.Grids {
		g := &c.Grids[i]

		if g.Name == "" {
			return fmt.Errorf("grids[%d]: name is required", i)
		}
		where := fmt.Sprintf("grids[%d] (%s)", i, g.Name)

		if g.URLTemplate == "" {
			return fmt.Errorf("%s: url_template is required", where)
		}
		expanded, err := expandEnvVars(g.URLTemplate)
		if err != nil {
			return fmt.Errorf("%s: url_template: %w", where, err)
		}
		g.URLTemplate = expanded

		// fail fast before SDK tries to use invalid template
		if _, err := template.New("").Parse(g.URLTemplate); err != nil {
			return fmt.Errorf("%s: invalid url_template: %w", where, err)
		}

		if len(g.Dimensions) == 0 {
			return fmt.Errorf("%s: at least one dimension is required", where)
		}
		for dimName, dimValues := range g.Dimensions {
			if len(dimValues) == 0 {
				return fmt.Errorf("%s: dimension %q has no values", where, dimName)
			}
			seen := make(map[string]struct{}, len(dimValues))
			for _, v := range dimValues {
				if _, exists := seen[v]; exists {
					return fmt.Errorf("%s: dimension %q has duplicate value %q", where, dimName, v)
				}
				seen[v] = struct{}{}
			}
		}

		if err := g.Settings.expandAndValidate(where); err != nil {
			return err
		}
	}

	if len(c.Sources) == 0 && len(c.Grids) == 0 {
		return errors.New("at least one source or grid must be defined")
	}

	return nil
}

// expandAndValidate expands credentials and applies setting defaults.
func (s *Settings) expandAndValidate(where string) error {
	var err error
	if s.Username, err = expandEnvVars(s.Username); err != nil {
		return fmt.Errorf("%s: username: %w", where, err)
	}
	if s.Password, err = expandEnvVars(s.Password); err != nil {
		return fmt.Errorf("%s: password: %w", where, err)
	}

	if s.ScanInterval == 0 {
		s.ScanInterval = defaultScanInterval
	}
	if s.ScanInterval < minScanInterval || s.ScanInterval > maxScanInterval {
		return fmt.Errorf("%s: scan_interval must be between %d and %d seconds, got %d",
			where, minScanInterval, maxScanInterval, s.ScanInterval)
	}

	if s.DataSizeUnit == "" {
		s.DataSizeUnit = string(metric.DefaultUnit)
	}
	if _, err := metric.ParseUnit(s.DataSizeUnit); err != nil {
		return fmt.Errorf("%s: data_size_unit: %w", where, err)
	}

	return nil
}

func validateURL(raw string) error {
	parsedURL, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsedURL.Scheme == "" {
		return errors.New("url must have a scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return errors.New("url must have a host")
	}
	return nil
}
