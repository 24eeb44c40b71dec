package config

import (
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/hapulse"
)

func TestBuildSources_SingleSource(t *testing.T) {
	cfg, err := Parse([]byte(`
sources:
  - name: Edge
    url: http://lb.internal:8404/stats;csv
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	sources, err := BuildSources(cfg)
	if err != nil {
		t.Fatalf("BuildSources() error = %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("len(sources) = %d, want 1", len(sources))
	}

	src := sources[0]
	if src.Name() != "Edge" || src.URL() != "http://lb.internal:8404/stats;csv" {
		t.Errorf("source = %q %q", src.Name(), src.URL())
	}
	if src.ScanInterval() != 30*time.Second || src.DataSizeUnit() != "MB" {
		t.Errorf("settings = %v %s", src.ScanInterval(), src.DataSizeUnit())
	}
	if src.Scope() != hapulse.DefaultScope("Edge", "http://lb.internal:8404/stats;csv") {
		t.Errorf("Scope() = %q, want default scope", src.Scope())
	}
}

func TestBuildSources_AllSettings(t *testing.T) {
	cfg := &Config{
		Sources: []SourceConfig{{
			Name: "Edge",
			ID:   "edge-lb",
			URL:  "https://lb.internal/stats;csv",
			Settings: Settings{
				Username:     "admin",
				Password:     "s3cret",
				VerifySSL:    true,
				ScanInterval: 15,
				DataSizeUnit: "kB",
			},
		}},
	}

	sources, err := BuildSources(cfg)
	if err != nil {
		t.Fatalf("BuildSources() error = %v", err)
	}

	src := sources[0]
	if src.Scope() != "edge-lb" {
		t.Errorf("Scope() = %q, want edge-lb", src.Scope())
	}
	if src.Username() != "admin" || src.Password() != "s3cret" {
		t.Errorf("credentials = %q/%q", src.Username(), src.Password())
	}
	if !src.VerifySSL() || src.ScanInterval() != 15*time.Second || src.DataSizeUnit() != "kB" {
		t.Errorf("settings = %v %v %s", src.VerifySSL(), src.ScanInterval(), src.DataSizeUnit())
	}
}

func TestBuildSources_Grid(t *testing.T) {
	cfg, err := Parse([]byte(`
sources:
  - name: Internal
    url: http://lb0.internal/stats;csv
grids:
  - name: Edge
    url_template: "http://lb-{{.site}}.internal/stats;csv"
    dimensions:
      site: [ams, fra]
    password: s3cret
    scan_interval: 60
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	sources, err := BuildSources(cfg)
	if err != nil {
		t.Fatalf("BuildSources() error = %v", err)
	}

	wantNames := []string{"Internal", "Edge (ams)", "Edge (fra)"}
	if len(sources) != len(wantNames) {
		t.Fatalf("len(sources) = %d, want %d", len(sources), len(wantNames))
	}
	for i, want := range wantNames {
		if sources[i].Name() != want {
			t.Errorf("sources[%d].Name() = %q, want %q", i, sources[i].Name(), want)
		}
	}

	grid := sources[2]
	if grid.URL() != "http://lb-fra.internal/stats;csv" {
		t.Errorf("URL() = %q", grid.URL())
	}
	if grid.Password() != "s3cret" || grid.ScanInterval() != time.Minute {
		t.Errorf("grid settings = %q %v", grid.Password(), grid.ScanInterval())
	}
}

func TestBuildSources_GridMissingKey(t *testing.T) {
	cfg, err := Parse([]byte(`
grids:
  - name: Edge
    url_template: "http://lb-{{.region}}.internal/stats;csv"
    dimensions:
      site: [ams]
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	_, err = BuildSources(cfg)
	if err == nil || !strings.Contains(err.Error(), `grid "Edge"`) {
		t.Errorf("BuildSources() error = %v, want grid error", err)
	}
}

func TestOptions(t *testing.T) {
	cfg, err := Parse([]byte(`
title: Edge LBs
port: 9090
validate_on_start: true
sources:
  - name: Edge
    url: http://lb.internal/stats;csv
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts, err := Options(cfg)
	if err != nil {
		t.Fatalf("Options() error = %v", err)
	}

	hp, err := hapulse.New(opts...)
	if err != nil {
		t.Fatalf("hapulse.New() error = %v", err)
	}
	if hp.Port() != 9090 || hp.Title() != "Edge LBs" {
		t.Errorf("Port/Title = %d/%q", hp.Port(), hp.Title())
	}
	if len(hp.Sources()) != 1 {
		t.Errorf("len(Sources()) = %d, want 1", len(hp.Sources()))
	}
}
