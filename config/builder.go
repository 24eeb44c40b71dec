package config

import (
	"fmt"
	"time"

	"github.com/jpalmerr/hapulse"
)

// BuildSources converts parsed configuration into SDK Source objects.
//
// Direct sources come first in file order, followed by each grid's
// sources. Grid dimensions are expanded via cartesian product.
func BuildSources(cfg *Config) ([]hapulse.Source, error) {
	var sources []hapulse.Source

	for _, sc := range cfg.Sources {
		opts := sourceOptions(sc.Settings)
		if sc.ID != "" {
			opts = append(opts, hapulse.WithScope(sc.ID))
		}
		src, err := hapulse.NewSource(sc.Name, sc.URL, opts...)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", sc.Name, err)
		}
		sources = append(sources, src)
	}

	for _, gc := range cfg.Grids {
		gridSources, err := hapulse.NewSourceGrid(gc.Name,
			hapulse.WithURLTemplate(gc.URLTemplate),
			hapulse.WithDimensions(gc.Dimensions),
			hapulse.WithGridSourceOptions(sourceOptions(gc.Settings)...),
		)
		if err != nil {
			return nil, fmt.Errorf("grid %q: %w", gc.Name, err)
		}
		sources = append(sources, gridSources...)
	}

	return sources, nil
}

// Options converts parsed configuration into [hapulse.New] options,
// including the built sources.
func Options(cfg *Config) ([]hapulse.Option, error) {
	sources, err := BuildSources(cfg)
	if err != nil {
		return nil, err
	}

	opts := []hapulse.Option{
		hapulse.WithSources(sources...),
		hapulse.WithPort(cfg.Port),
		hapulse.WithSetupValidation(cfg.ValidateOnStart),
	}
	if cfg.Title != "" {
		opts = append(opts, hapulse.WithTitle(cfg.Title))
	}
	return opts, nil
}

func sourceOptions(s Settings) []hapulse.SourceOption {
	opts := []hapulse.SourceOption{
		hapulse.WithVerifySSL(s.VerifySSL),
	}
	if s.Username != "" || s.Password != "" {
		opts = append(opts, hapulse.WithBasicAuth(s.Username, s.Password))
	}
	if s.ScanInterval != 0 {
		opts = append(opts, hapulse.WithScanInterval(time.Duration(s.ScanInterval)*time.Second))
	}
	if s.DataSizeUnit != "" {
		opts = append(opts, hapulse.WithDataSizeUnit(s.DataSizeUnit))
	}
	return opts
}
