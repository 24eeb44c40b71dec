// Package metric maps raw statistics rows to typed observable values.
//
// Each monitored column is described by a static [Descriptor]; the tagged
// [Kind] selects how [ValueOf] interprets the raw string. The descriptor
// table is process-wide and read-only.
package metric

import (
	"strings"

	"github.com/jpalmerr/hapulse/internal/stats"
)

// Kind selects how a column is projected into a [Value].
type Kind int

const (
	// IntegerCounter parses a float and truncates it to an integer.
	IntegerCounter Kind = iota
	// DataSizeBytes parses a byte count and converts it to the display unit.
	DataSizeBytes
	// RawString passes the value through unchanged.
	RawString
	// Availability maps a status string to up, down, or unknown.
	Availability
	// BackendUp maps a status string to up or down; any non-up status is down.
	BackendUp
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case IntegerCounter:
		return "integer_counter"
	case DataSizeBytes:
		return "data_size_bytes"
	case RawString:
		return "raw_string"
	case Availability:
		return "availability"
	case BackendUp:
		return "backend_up"
	default:
		return "unknown"
	}
}

// StateClass describes how a numeric value evolves over time.
type StateClass string

const (
	// Measurement values go up and down.
	Measurement StateClass = "measurement"
	// TotalIncreasing values only grow until the load balancer restarts.
	TotalIncreasing StateClass = "total_increasing"
)

// Descriptor is static metadata for one metric column.
type Descriptor struct {
	// Key uniquely names the metric within the table.
	Key string

	// Column is the CSV column the value is read from.
	Column string

	// Name is the human-readable metric name.
	Name string

	Kind       Kind
	StateClass StateClass

	// Diagnostic marks error and warning counters.
	Diagnostic bool

	// Applies restricts the descriptor to matching rows. Nil matches every row.
	Applies func(key stats.ObjectKey, row stats.Row) bool
}

// AppliesTo reports whether the descriptor should be discovered for a row.
func (d Descriptor) AppliesTo(key stats.ObjectKey, row stats.Row) bool {
	if d.Applies == nil {
		return true
	}
	return d.Applies(key, row)
}

// Well-known service names used by HAProxy for aggregate rows.
const (
	ServerFrontend = "FRONTEND"
	ServerBackend  = "BACKEND"
	ServerListener = "LISTENER"
)

// OnlyServer matches rows whose svname equals name, ignoring case.
func OnlyServer(name string) func(stats.ObjectKey, stats.Row) bool {
	return func(_ stats.ObjectKey, row stats.Row) bool {
		return strings.EqualFold(row.Get(stats.ColumnServer), name)
	}
}

// IsServerRow matches individual servers, excluding frontend, backend, and
// listener aggregates.
func IsServerRow(key stats.ObjectKey, _ stats.Row) bool {
	switch strings.ToUpper(key.Server) {
	case ServerFrontend, ServerBackend, ServerListener:
		return false
	default:
		return true
	}
}

var descriptors = []Descriptor{
	{Key: "scur", Column: "scur", Name: "Sessions", Kind: IntegerCounter, StateClass: Measurement},
	{Key: "smax", Column: "smax", Name: "Max Sessions", Kind: IntegerCounter, StateClass: Measurement},
	{Key: "stot", Column: "stot", Name: "Total Sessions", Kind: IntegerCounter, StateClass: TotalIncreasing},
	{Key: "bin", Column: "bin", Name: "Bytes In", Kind: DataSizeBytes, StateClass: TotalIncreasing},
	{Key: "bout", Column: "bout", Name: "Bytes Out", Kind: DataSizeBytes, StateClass: TotalIncreasing},
	{Key: "rate", Column: "rate", Name: "Session Rate", Kind: IntegerCounter, StateClass: Measurement},
	{Key: "ereq", Column: "ereq", Name: "Request Errors", Kind: IntegerCounter, StateClass: TotalIncreasing, Diagnostic: true},
	{Key: "eresp", Column: "eresp", Name: "Response Errors", Kind: IntegerCounter, StateClass: TotalIncreasing, Diagnostic: true},
	{Key: "econ", Column: "econ", Name: "Connection Errors", Kind: IntegerCounter, StateClass: TotalIncreasing, Diagnostic: true},
	{Key: "wretr", Column: "wretr", Name: "Retry Warnings", Kind: IntegerCounter, StateClass: TotalIncreasing, Diagnostic: true},
	{Key: "wredis", Column: "wredis", Name: "Redispatch Warnings", Kind: IntegerCounter, StateClass: TotalIncreasing, Diagnostic: true},
	{Key: "status", Column: stats.ColumnStatus, Name: "Available", Kind: Availability},
	{Key: "backend_up", Column: stats.ColumnStatus, Name: "Backend Up", Kind: BackendUp, Applies: OnlyServer(ServerBackend)},
	{Key: "check_status", Column: "check_status", Name: "Check Status", Kind: RawString, Diagnostic: true, Applies: IsServerRow},
}

// Descriptors returns a copy of the descriptor table in display order.
func Descriptors() []Descriptor {
	cp := make([]Descriptor, len(descriptors))
	copy(cp, descriptors)
	return cp
}

// Lookup returns the descriptor with the given key.
func Lookup(key string) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.Key == key {
			return d, true
		}
	}
	return Descriptor{}, false
}
