package hapulse

import "github.com/jpalmerr/hapulse/internal/stats"

// Redacted replaces credentials in diagnostics output.
const Redacted = "**REDACTED**"

// SourceDiagnostics is the diagnostics export of one source.
type SourceDiagnostics struct {
	Entry DiagnosticsEntry `json:"entry"`

	// Data maps "{proxy}:{server}" to the object's raw CSV row. Empty before
	// the first successful poll.
	Data map[string]map[string]string `json:"data"`
}

// DiagnosticsEntry is a source's configuration with credentials redacted.
type DiagnosticsEntry struct {
	Name                string `json:"name"`
	Scope               string `json:"id"`
	URL                 string `json:"url"`
	Username            string `json:"username"`
	Password            string `json:"password"`
	VerifySSL           bool   `json:"verify_ssl"`
	ScanIntervalSeconds int    `json:"scan_interval"`
	DataSizeUnit        string `json:"data_size_unit"`
}

func newDiagnostics(src Source, snap *stats.Snapshot) SourceDiagnostics {
	entry := DiagnosticsEntry{
		Name:                src.Name(),
		Scope:               src.Scope(),
		URL:                 src.URL(),
		Username:            Redacted,
		Password:            Redacted,
		VerifySSL:           src.VerifySSL(),
		ScanIntervalSeconds: int(src.ScanInterval().Seconds()),
		DataSizeUnit:        src.DataSizeUnit(),
	}
	data := make(map[string]map[string]string, snap.Len())
	for _, key := range snap.Keys() {
		row, _ := snap.Row(key)
		data[key.String()] = row
	}

	return SourceDiagnostics{Entry: entry, Data: data}
}
