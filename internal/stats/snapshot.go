package stats

import "time"

// Column names used to build an [ObjectKey].
const (
	ColumnProxy  = "pxname"
	ColumnServer = "svname"
	ColumnStatus = "status"
)

// ObjectKey identifies one monitored object within a data source.
//
// Both parts are always non-empty for keys produced by [Parse].
type ObjectKey struct {
	Proxy  string
	Server string
}

// String returns the key in "{proxy}:{server}" form.
func (k ObjectKey) String() string {
	return k.Proxy + ":" + k.Server
}

// Row maps column names to raw string values.
type Row map[string]string

// Get returns the value of a column, or empty string if absent.
func (r Row) Get(column string) string {
	return r[column]
}

// Snapshot is the parsed result of a single poll.
//
// A Snapshot is never mutated after [Parse] returns it. Accessors hand out
// copies so that callers cannot modify shared state.
type Snapshot struct {
	rows      map[ObjectKey]Row
	keys      []ObjectKey
	fetchedAt time.Time
}

// FetchedAt returns the time the snapshot was taken.
func (s *Snapshot) FetchedAt() time.Time {
	return s.fetchedAt
}

// Len returns the number of rows.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns the object keys in first-seen input order.
func (s *Snapshot) Keys() []ObjectKey {
	if s == nil {
		return nil
	}
	cp := make([]ObjectKey, len(s.keys))
	copy(cp, s.keys)
	return cp
}

// Row returns a copy of the row for key.
func (s *Snapshot) Row(key ObjectKey) (Row, bool) {
	if s == nil {
		return nil, false
	}
	row, ok := s.rows[key]
	if !ok {
		return nil, false
	}
	return copyRow(row), true
}

func copyRow(r Row) Row {
	cp := make(Row, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}
