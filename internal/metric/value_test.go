package metric

import (
	"testing"

	"github.com/jpalmerr/hapulse/internal/stats"
)

func mustLookup(t *testing.T, key string) Descriptor {
	t.Helper()
	d, ok := Lookup(key)
	if !ok {
		t.Fatalf("Lookup(%q) not found", key)
	}
	return d
}

func TestValueOf_IntegerCounter(t *testing.T) {
	scur := mustLookup(t, "scur")

	tests := []struct {
		name   string
		raw    string
		want   int64
		wantOK bool
	}{
		{"plain integer", "42", 42, true},
		{"float truncated", "42.9", 42, true},
		{"negative float truncated", "-1.5", -1, true},
		{"empty", "", 0, false},
		{"garbage", "n/a", 0, false},
		{"infinity", "inf", 0, false},
		{"nan", "NaN", 0, false},
		{"largest exact int64 float", "9223372036854774784", 9223372036854774784, true},
		{"above int64", "9223372036854775808", 0, false},
		{"far above int64", "1e30", 0, false},
		{"below int64", "-1e30", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := ValueOf(stats.Row{"scur": tt.raw}, scur, Options{})
			if ok != tt.wantOK {
				t.Fatalf("ValueOf() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && v.Int != tt.want {
				t.Errorf("ValueOf().Int = %d, want %d", v.Int, tt.want)
			}
		})
	}
}

func TestValueOf_MissingColumn(t *testing.T) {
	v, ok := ValueOf(stats.Row{"pxname": "web"}, mustLookup(t, "scur"), Options{})
	if ok {
		t.Errorf("ValueOf() = %+v, want unknown for missing column", v)
	}
}

func TestValueOf_NilRow(t *testing.T) {
	if _, ok := ValueOf(nil, mustLookup(t, "status"), Options{}); ok {
		t.Error("ValueOf(nil) should be unknown")
	}
}

func TestValueOf_DataSize(t *testing.T) {
	bin := mustLookup(t, "bin")
	row := stats.Row{"bin": "2000000"}

	tests := []struct {
		unit Unit
		want float64
	}{
		{Megabytes, 2.0},
		{Bytes, 2000000.0},
		{Kilobytes, 2000.0},
		{Gigabytes, 0.002},
		{Terabytes, 0.000002},
	}

	for _, tt := range tests {
		t.Run(string(tt.unit), func(t *testing.T) {
			v, ok := ValueOf(row, bin, Options{Unit: tt.unit})
			if !ok {
				t.Fatal("ValueOf() unknown, want value")
			}
			if v.Float != tt.want {
				t.Errorf("ValueOf().Float = %v, want %v", v.Float, tt.want)
			}
		})
	}
}

func TestValueOf_DataSizeNotFinite(t *testing.T) {
	bin := mustLookup(t, "bin")

	for _, raw := range []string{"NaN", "nan", "+Inf", "-Inf", "inf", "1e400"} {
		t.Run(raw, func(t *testing.T) {
			if v, ok := ValueOf(stats.Row{"bin": raw}, bin, Options{Unit: Bytes}); ok {
				t.Errorf("ValueOf(%q) = %+v, want unknown", raw, v)
			}
		})
	}
}

func TestValueOf_DataSizeDefaultsToMegabytes(t *testing.T) {
	v, ok := ValueOf(stats.Row{"bout": "5000000"}, mustLookup(t, "bout"), Options{})
	if !ok {
		t.Fatal("ValueOf() unknown, want value")
	}
	if v.Float != 5.0 {
		t.Errorf("ValueOf().Float = %v, want 5", v.Float)
	}
}

func TestValueOf_DataSizeUnresolvable(t *testing.T) {
	bin := mustLookup(t, "bin")

	if _, ok := ValueOf(stats.Row{"bin": "100"}, bin, Options{Unit: "PB"}); ok {
		t.Error("unknown unit should yield unknown value")
	}
	if _, ok := ValueOf(stats.Row{"bin": "lots"}, bin, Options{Unit: Bytes}); ok {
		t.Error("unparseable size should yield unknown value")
	}
	if _, ok := ValueOf(stats.Row{"bin": ""}, bin, Options{Unit: Bytes}); ok {
		t.Error("empty size should yield unknown value")
	}
}

func TestValueOf_RawString(t *testing.T) {
	d := mustLookup(t, "check_status")

	v, ok := ValueOf(stats.Row{"check_status": "L7OK"}, d, Options{})
	if !ok || v.Text != "L7OK" {
		t.Errorf("ValueOf() = %+v, %v, want L7OK", v, ok)
	}

	if _, ok := ValueOf(stats.Row{"check_status": ""}, d, Options{}); ok {
		t.Error("empty raw string should be unknown")
	}
}

func TestValueOf_Availability(t *testing.T) {
	status := mustLookup(t, "status")

	tests := []struct {
		raw       string
		wantUp    bool
		wantKnown bool
	}{
		{"UP", true, true},
		{"up", true, true},
		{"UP 1/2", true, true},
		{"OPEN", true, true},
		{"L7OK", true, true},
		{"MAINT", false, true},
		{"DOWN", false, true},
		{"no check", false, false},
		{"WEIRD", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, ok := ValueOf(stats.Row{"status": tt.raw}, status, Options{})
			if ok != tt.wantKnown {
				t.Fatalf("ValueOf() known = %v, want %v", ok, tt.wantKnown)
			}
			if ok && v.Up != tt.wantUp {
				t.Errorf("ValueOf().Up = %v, want %v", v.Up, tt.wantUp)
			}
		})
	}
}

func TestValueOf_BackendUp(t *testing.T) {
	d := mustLookup(t, "backend_up")

	tests := []struct {
		raw       string
		wantUp    bool
		wantKnown bool
	}{
		{"UP", true, true},
		{"UP 2/3", true, true},
		{"DOWN", false, true},
		{"WEIRD", false, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			row := stats.Row{"svname": "BACKEND", "status": tt.raw}
			v, ok := ValueOf(row, d, Options{})
			if ok != tt.wantKnown {
				t.Fatalf("ValueOf() known = %v, want %v", ok, tt.wantKnown)
			}
			if ok && v.Up != tt.wantUp {
				t.Errorf("ValueOf().Up = %v, want %v", v.Up, tt.wantUp)
			}
		})
	}
}

func TestValueOf_DoesNotMutateRow(t *testing.T) {
	row := stats.Row{"scur": " 7 ", "status": "up", "bin": "10"}
	before := len(row)

	for _, d := range Descriptors() {
		ValueOf(row, d, Options{Unit: Bytes})
	}

	if len(row) != before || row["scur"] != " 7 " || row["status"] != "up" {
		t.Errorf("row mutated: %v", row)
	}
}

func TestValue_Float64(t *testing.T) {
	tests := []struct {
		name   string
		value  Value
		want   float64
		wantOK bool
	}{
		{"counter", Value{Kind: IntegerCounter, Int: 3}, 3, true},
		{"size", Value{Kind: DataSizeBytes, Float: 1.5}, 1.5, true},
		{"up", Value{Kind: Availability, Up: true}, 1, true},
		{"down", Value{Kind: BackendUp}, 0, true},
		{"text", Value{Kind: RawString, Text: "x"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.value.Float64()
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Float64() = %v, %v, want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAttributes(t *testing.T) {
	row := stats.Row{"status": "UP 1/2", "scur": "1"}

	attrs := Attributes(row, mustLookup(t, "status"))
	if attrs["status"] != "UP 1/2" {
		t.Errorf("Attributes()[status] = %q, want %q", attrs["status"], "UP 1/2")
	}

	if Attributes(row, mustLookup(t, "scur")) != nil {
		t.Error("counters should not carry attributes")
	}
	if Attributes(stats.Row{"status": ""}, mustLookup(t, "status")) != nil {
		t.Error("empty status should not carry attributes")
	}
}

func TestParseUnit(t *testing.T) {
	for _, s := range []string{"B", "kB", "MB", "GB", "TB"} {
		if _, err := ParseUnit(s); err != nil {
			t.Errorf("ParseUnit(%q) error = %v", s, err)
		}
	}
	for _, s := range []string{"", "mb", "KB", "PB"} {
		if _, err := ParseUnit(s); err == nil {
			t.Errorf("ParseUnit(%q) expected error", s)
		}
	}
}
