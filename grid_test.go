package hapulse

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// Phase 1: Cartesian Product Tests
// =============================================================================

func TestCartesianProduct_TwoDimensions(t *testing.T) {
	dims := map[string][]string{
		"x": {"a", "b"},
		"y": {"1", "2"},
	}

	result := cartesianProduct(dims)

	if len(result) != 4 {
		t.Fatalf("cartesianProduct() returned %d combinations, want 4", len(result))
	}

	// verify sorted key order (x, y) and preserved value order
	expected := []map[string]string{
		{"x": "a", "y": "1"},
		{"x": "a", "y": "2"},
		{"x": "b", "y": "1"},
		{"x": "b", "y": "2"},
	}

	for i, want := range expected {
		if result[i]["x"] != want["x"] || result[i]["y"] != want["y"] {
			t.Errorf("combination[%d] = %v, want %v", i, result[i], want)
		}
	}
}

func TestCartesianProduct_SingleDimension(t *testing.T) {
	dims := map[string][]string{
		"env": {"prod", "staging", "dev"},
	}

	result := cartesianProduct(dims)

	if len(result) != 3 {
		t.Fatalf("cartesianProduct() returned %d combinations, want 3", len(result))
	}

	// verify order preserved
	expected := []string{"prod", "staging", "dev"}
	for i, want := range expected {
		if result[i]["env"] != want {
			t.Errorf("combination[%d][env] = %v, want %v", i, result[i]["env"], want)
		}
	}
}

func TestCartesianProduct_ThreeDimensions(t *testing.T) {
	dims := map[string][]string{
		"a": {"1", "2"},
		"b": {"x", "y"},
		"c": {"p", "q"},
	}

	result := cartesianProduct(dims)

	if len(result) != 8 {
		t.Fatalf("cartesianProduct() returned %d combinations, want 8 (2x2x2)", len(result))
	}

	// verify first combination uses sorted key order (a, b, c)
	first := result[0]
	if first["a"] != "1" || first["b"] != "x" || first["c"] != "p" {
		t.Errorf("first combination = %v, want {a:1, b:x, c:p}", first)
	}
}

func TestCartesianProduct_EmptyDimension(t *testing.T) {
	dims := map[string][]string{
		"x": {},
	}

	result := cartesianProduct(dims)

	if len(result) != 0 {
		t.Errorf("cartesianProduct() with empty dimension returned %d combinations, want 0", len(result))
	}
}

func TestCartesianProduct_EmptyMap(t *testing.T) {
	dims := map[string][]string{}

	result := cartesianProduct(dims)

	if len(result) != 0 {
		t.Errorf("cartesianProduct() with empty map returned %d combinations, want 0", len(result))
	}
}

func TestCartesianProduct_DeterministicOrder(t *testing.T) {
	dims := map[string][]string{
		"z": {"3", "4"},
		"a": {"1", "2"},
	}

	// run 100 times and verify identical output
	var first []map[string]string
	for i := 0; i < 100; i++ {
		result := cartesianProduct(dims)
		if first == nil {
			first = result
			continue
		}

		if len(result) != len(first) {
			t.Fatalf("iteration %d: length changed from %d to %d", i, len(first), len(result))
		}

		for j := range first {
			if result[j]["a"] != first[j]["a"] || result[j]["z"] != first[j]["z"] {
				t.Fatalf("iteration %d: combination[%d] differs: %v vs %v", i, j, result[j], first[j])
			}
		}
	}
}

func TestCartesianProduct_PreservesValueOrder(t *testing.T) {
	// values are NOT in alphabetical order
	dims := map[string][]string{
		"env": {"prod", "staging", "dev"},
	}

	result := cartesianProduct(dims)

	if len(result) != 3 {
		t.Fatalf("cartesianProduct() returned %d combinations, want 3", len(result))
	}

	// should preserve slice order, not sort values
	expected := []string{"prod", "staging", "dev"}
	for i, want := range expected {
		if result[i]["env"] != want {
			t.Errorf("value order not preserved: combination[%d][env] = %v, want %v", i, result[i]["env"], want)
		}
	}
}

// =============================================================================
// Phase 2: Grid Options Tests
// =============================================================================

// =============================================================================
// Phase 2: Grid Options Tests
// =============================================================================

func TestWithURLTemplate_Empty(t *testing.T) {
	cfg := &gridConfig{}
	if err := WithURLTemplate("")(cfg); err == nil {
		t.Error("WithURLTemplate(\"\") should return error")
	}
}

func TestWithDimensions_Invalid(t *testing.T) {
	tests := []struct {
		name string
		dims map[string][]string
	}{
		{"empty map", map[string][]string{}},
		{"no values", map[string][]string{"site": {}}},
		{"empty value", map[string][]string{"site": {"ams", ""}}},
		{"duplicate value", map[string][]string{"site": {"ams", "ams"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &gridConfig{}
			if err := WithDimensions(tt.dims)(cfg); err == nil {
				t.Errorf("WithDimensions(%v) should return error", tt.dims)
			}
		})
	}
}

func TestWithGridSourceOptions_Nil(t *testing.T) {
	cfg := &gridConfig{}
	if err := WithGridSourceOptions(WithVerifySSL(true), nil)(cfg); err == nil {
		t.Error("WithGridSourceOptions(nil) should return error")
	}
}

// =============================================================================
// Phase 3: Source Grid Tests
// =============================================================================

func TestNewSourceGrid_Basic(t *testing.T) {
	sources, err := NewSourceGrid("Edge",
		WithURLTemplate("http://lb-{{.site}}-{{.n}}.internal:8404/stats;csv"),
		WithDimensions(map[string][]string{
			"site": {"ams", "fra"},
			"n":    {"1", "2"},
		}),
	)
	if err != nil {
		t.Fatalf("NewSourceGrid() error = %v", err)
	}

	if len(sources) != 4 {
		t.Fatalf("NewSourceGrid() returned %d sources, want 4", len(sources))
	}

	// keys sorted: n, site
	wantNames := []string{"Edge (1/ams)", "Edge (1/fra)", "Edge (2/ams)", "Edge (2/fra)"}
	wantURLs := []string{
		"http://lb-ams-1.internal:8404/stats;csv",
		"http://lb-fra-1.internal:8404/stats;csv",
		"http://lb-ams-2.internal:8404/stats;csv",
		"http://lb-fra-2.internal:8404/stats;csv",
	}
	scopes := make(map[string]bool)
	for i, src := range sources {
		if src.Name() != wantNames[i] {
			t.Errorf("sources[%d].Name() = %q, want %q", i, src.Name(), wantNames[i])
		}
		if src.URL() != wantURLs[i] {
			t.Errorf("sources[%d].URL() = %q, want %q", i, src.URL(), wantURLs[i])
		}
		if scopes[src.Scope()] {
			t.Errorf("duplicate scope %q", src.Scope())
		}
		scopes[src.Scope()] = true
	}
}

func TestNewSourceGrid_URLEncoding(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{"space", "hello world", "hello+world"},
		{"ampersand", "a&b", "a%26b"},
		{"equals", "a=b", "a%3Db"},
		{"semicolon", "a;b", "a%3Bb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sources, err := NewSourceGrid("Edge",
				WithURLTemplate("http://lb.internal/stats?scope={{.q}};csv"),
				WithDimensions(map[string][]string{"q": {tt.value}}),
			)
			if err != nil {
				t.Fatalf("NewSourceGrid() error = %v", err)
			}
			if len(sources) != 1 {
				t.Fatalf("expected 1 source, got %d", len(sources))
			}

			want := "http://lb.internal/stats?scope=" + tt.expected + ";csv"
			if sources[0].URL() != want {
				t.Errorf("URL() = %v, want %v", sources[0].URL(), want)
			}
		})
	}
}

func TestNewSourceGrid_SharedSourceOptions(t *testing.T) {
	sources, err := NewSourceGrid("Edge",
		WithURLTemplate("http://{{.host}}:8404/stats;csv"),
		WithDimensions(map[string][]string{"host": {"10.0.0.1", "10.0.0.2"}}),
		WithGridSourceOptions(
			WithBasicAuth("admin", "secret"),
			WithScanInterval(10*time.Second),
			WithDataSizeUnit("GB"),
		),
	)
	if err != nil {
		t.Fatalf("NewSourceGrid() error = %v", err)
	}

	for _, src := range sources {
		if src.Username() != "admin" || src.Password() != "secret" {
			t.Errorf("%s credentials = %q/%q, want admin/secret", src.Name(), src.Username(), src.Password())
		}
		if src.ScanInterval() != 10*time.Second {
			t.Errorf("%s ScanInterval() = %v, want 10s", src.Name(), src.ScanInterval())
		}
		if src.DataSizeUnit() != "GB" {
			t.Errorf("%s DataSizeUnit() = %q, want GB", src.Name(), src.DataSizeUnit())
		}
	}
}

func TestNewSourceGrid_Errors(t *testing.T) {
	dims := WithDimensions(map[string][]string{"host": {"lb1"}})

	tests := []struct {
		name     string
		baseName string
		opts     []GridOption
		wantErr  string
	}{
		{"empty base name", "", []GridOption{WithURLTemplate("http://{{.host}}/"), dims}, "base name"},
		{"whitespace base name", "   ", []GridOption{WithURLTemplate("http://{{.host}}/"), dims}, "base name"},
		{"missing template", "Edge", []GridOption{dims}, "URL template required"},
		{"missing dimensions", "Edge", []GridOption{WithURLTemplate("http://{{.host}}/")}, "dimension"},
		{"invalid template", "Edge", []GridOption{WithURLTemplate("http://{{.host}/"), dims}, "invalid URL template"},
		{"missing key", "Edge", []GridOption{WithURLTemplate("http://{{.site}}/"), dims}, "template execution failed"},
		{"not http", "Edge", []GridOption{WithURLTemplate("ftp://{{.host}}/"), dims}, "failed to create source"},
		{"bad source option", "Edge", []GridOption{
			WithURLTemplate("http://{{.host}}/"), dims,
			WithGridSourceOptions(WithScanInterval(time.Second)),
		}, "scan interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSourceGrid(tt.baseName, tt.opts...)
			if err == nil {
				t.Fatal("NewSourceGrid() should return error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNewSourceGrid_ComposableWithNew(t *testing.T) {
	sources, err := NewSourceGrid("Edge",
		WithURLTemplate("http://{{.host}}:8404/stats;csv"),
		WithDimensions(map[string][]string{"host": {"lb1", "lb2"}}),
	)
	if err != nil {
		t.Fatalf("NewSourceGrid() error = %v", err)
	}

	single, err := NewSource("Internal", "http://lb3:8404/stats;csv")
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}

	hp, err := New(WithSources(sources...), WithSource(single))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(hp.Sources()) != 3 {
		t.Errorf("Sources() = %d, want 3", len(hp.Sources()))
	}
}

func TestNewSourceGrid_SharedScopeRejectedByNew(t *testing.T) {
	sources, err := NewSourceGrid("Edge",
		WithURLTemplate("http://{{.host}}:8404/stats;csv"),
		WithDimensions(map[string][]string{"host": {"lb1", "lb2"}}),
		WithGridSourceOptions(WithScope("edge")),
	)
	if err != nil {
		t.Fatalf("NewSourceGrid() error = %v", err)
	}

	if _, err := New(WithSources(sources...)); err == nil {
		t.Error("New() with duplicate scopes should return error")
	}
}
