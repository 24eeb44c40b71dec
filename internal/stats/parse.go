package stats

import (
	"encoding/csv"
	"strings"
	"time"
)

// headerMarker prefixes the first column of a header line.
const headerMarker = "#"

// Parse decodes a CSV statistics export into a [Snapshot] stamped with the
// current time. See [ParseAt].
func Parse(text string) *Snapshot {
	return ParseAt(text, time.Now())
}

// ParseAt decodes a CSV statistics export into a [Snapshot].
//
// Lines whose first field starts with "#" are header lines; the most recent
// header applies to the data lines that follow it. Data lines seen before
// any header are skipped. Short rows are padded with empty strings and long
// rows are truncated to the header width. Rows without a non-empty pxname
// and svname are dropped. When two rows share a key the later one wins but
// keeps the position of the first.
//
// ParseAt never fails: empty input, input without a header, and lines that
// cannot be decoded all yield fewer (possibly zero) rows.
func ParseAt(text string, fetchedAt time.Time) *Snapshot {
	snap := &Snapshot{
		rows:      make(map[ObjectKey]Row),
		fetchedAt: fetchedAt,
	}

	var header []string
	delimiter := ','

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if isHeaderLine(line) {
			delimiter = detectDelimiter(line)
			fields, ok := decodeLine(line, delimiter)
			if !ok || len(fields) == 0 {
				continue
			}
			fields[0] = strings.TrimSpace(strings.TrimLeft(fields[0], "# "))
			header = fields
			continue
		}

		if header == nil {
			continue
		}

		fields, ok := decodeLine(line, delimiter)
		if !ok {
			continue
		}

		row := make(Row, len(header))
		for i, column := range header {
			value := ""
			if i < len(fields) {
				value = fields[i]
			}
			row[column] = value
		}

		key := ObjectKey{Proxy: row[ColumnProxy], Server: row[ColumnServer]}
		if key.Proxy == "" || key.Server == "" {
			continue
		}

		if _, seen := snap.rows[key]; !seen {
			snap.keys = append(snap.keys, key)
		}
		snap.rows[key] = row
	}

	return snap
}

// isHeaderLine reports whether the first field of line starts with "#".
// A quoted first field is unwrapped before the check.
func isHeaderLine(line string) bool {
	return strings.HasPrefix(strings.TrimPrefix(line, `"`), headerMarker)
}

// detectDelimiter picks ';' for headers that use semicolons and no commas,
// ',' otherwise.
func detectDelimiter(header string) rune {
	if strings.Contains(header, ";") && !strings.Contains(header, ",") {
		return ';'
	}
	return ','
}

// decodeLine splits a single line using RFC 4180 quoting rules.
func decodeLine(line string, delimiter rune) ([]string, bool) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	fields, err := r.Read()
	if err != nil {
		return nil, false
	}
	return fields, true
}
