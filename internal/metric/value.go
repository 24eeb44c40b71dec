package metric

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jpalmerr/hapulse/internal/stats"
)

// Unit is a display unit for byte counts.
type Unit string

const (
	Bytes     Unit = "B"
	Kilobytes Unit = "kB"
	Megabytes Unit = "MB"
	Gigabytes Unit = "GB"
	Terabytes Unit = "TB"
)

// DefaultUnit is used when no data size unit is configured.
const DefaultUnit = Megabytes

var unitFactors = map[Unit]float64{
	Bytes:     1,
	Kilobytes: 1e3,
	Megabytes: 1e6,
	Gigabytes: 1e9,
	Terabytes: 1e12,
}

// Factor returns the number of bytes in one unit.
func (u Unit) Factor() (float64, bool) {
	f, ok := unitFactors[u]
	return f, ok
}

// ParseUnit validates a unit name. Matching is case-sensitive.
func ParseUnit(s string) (Unit, error) {
	u := Unit(s)
	if _, ok := unitFactors[u]; !ok {
		return "", fmt.Errorf("unknown data size unit %q (expected B, kB, MB, GB, or TB)", s)
	}
	return u, nil
}

// Statuses that count as up for [Availability] and [BackendUp].
var upStatuses = map[string]struct{}{
	"UP": {}, "OPEN": {}, "OPENING": {}, "READY": {}, "L4OK": {}, "L6OK": {}, "L7OK": {},
}

// Statuses that count as down for [Availability].
var downStatuses = map[string]struct{}{
	"DOWN": {}, "MAINT": {}, "NOLB": {}, "STOP": {}, "STOPPED": {}, "CLOSED": {},
}

// Options carries per-source projection settings.
type Options struct {
	// Unit is the display unit for [DataSizeBytes] values.
	Unit Unit
}

// Value is a projected metric value. Which field is meaningful depends on Kind.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Text  string
	Up    bool
}

// Float64 returns the value as a number: counters and sizes as-is,
// availability as 1 or 0. Text values report false.
func (v Value) Float64() (float64, bool) {
	switch v.Kind {
	case IntegerCounter:
		return float64(v.Int), true
	case DataSizeBytes:
		return v.Float, true
	case Availability, BackendUp:
		if v.Up {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Interface returns the value as a JSON-friendly scalar.
func (v Value) Interface() any {
	switch v.Kind {
	case IntegerCounter:
		return v.Int
	case DataSizeBytes:
		return v.Float
	case Availability, BackendUp:
		return v.Up
	default:
		return v.Text
	}
}

// ValueOf projects one row through a descriptor.
//
// The boolean result is false when the value is unknown: the column is
// missing or empty, the number does not parse or is not finite, a counter
// does not fit in an int64, the unit is unresolvable, or an availability
// status is unrecognized. ValueOf never modifies row.
func ValueOf(row stats.Row, d Descriptor, opts Options) (Value, bool) {
	if row == nil {
		return Value{}, false
	}
	raw := row.Get(d.Column)

	switch d.Kind {
	case IntegerCounter:
		if raw == "" {
			return Value{}, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold
		if err != nil || math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
			return Value{}, false
		}
		return Value{Kind: IntegerCounter, Int: int64(f)}, true

	case DataSizeBytes:
		if raw == "" {
			return Value{}, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, false
		}
		unit := opts.Unit
		if unit == "" {
			unit = DefaultUnit
		}
		factor, ok := unit.Factor()
		if !ok {
			return Value{}, false
		}
		return Value{Kind: DataSizeBytes, Float: f / factor}, true

	case RawString:
		if raw == "" {
			return Value{}, false
		}
		return Value{Kind: RawString, Text: raw}, true

	case Availability:
		up, known := availability(raw)
		if !known {
			return Value{}, false
		}
		return Value{Kind: Availability, Up: up}, true

	case BackendUp:
		status := strings.ToUpper(raw)
		if status == "" {
			return Value{}, false
		}
		return Value{Kind: BackendUp, Up: isUp(status)}, true
	}

	return Value{}, false
}

// availability returns (up, known) for a status string.
func availability(raw string) (bool, bool) {
	status := strings.ToUpper(raw)
	if status == "" {
		return false, false
	}
	if isUp(status) {
		return true, true
	}
	if _, ok := downStatuses[status]; ok {
		return false, true
	}
	return false, false
}

// isUp expects an upper-cased status. "UP 1/2" and "UP (agent)" count as up.
func isUp(status string) bool {
	if _, ok := upStatuses[status]; ok {
		return true
	}
	return strings.HasPrefix(status, "UP")
}

// Attributes returns extra state attributes for a row: availability kinds
// expose the raw status string. Returns nil when there is nothing to add.
func Attributes(row stats.Row, d Descriptor) map[string]string {
	if d.Kind != Availability && d.Kind != BackendUp {
		return nil
	}
	status := row.Get(stats.ColumnStatus)
	if status == "" {
		return nil
	}
	return map[string]string{"status": status}
}
