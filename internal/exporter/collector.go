package exporter

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/hapulse/internal/discovery"
	"github.com/jpalmerr/hapulse/internal/metric"
	"github.com/jpalmerr/hapulse/internal/stats"
)

// Namespace prefixes every entity metric family.
const Namespace = "haproxy"

// familyNames maps descriptor keys to metric family names.
var familyNames = map[string]string{
	"scur":         "sessions_current",
	"smax":         "sessions_max",
	"stot":         "sessions_total",
	"bin":          "bytes_in",
	"bout":         "bytes_out",
	"rate":         "session_rate",
	"ereq":         "request_errors_total",
	"eresp":        "response_errors_total",
	"econ":         "connection_errors_total",
	"wretr":        "retry_warnings_total",
	"wredis":       "redispatch_warnings_total",
	"status":       "up",
	"backend_up":   "backend_up",
	"check_status": "check_status",
}

// FamilyName returns the fully qualified metric name for a descriptor.
func FamilyName(d metric.Descriptor) string {
	name, ok := familyNames[d.Key]
	if !ok {
		name = d.Key
	}
	return prometheus.BuildFQName(Namespace, "", name)
}

// Target is the scrape-time view of one polled source.
type Target interface {
	// Name is the source's display name, used as the "source" label.
	Name() string

	// Current returns the last good snapshot, nil before the first success.
	Current() *stats.Snapshot

	// Known returns the source's discovered entity ids.
	Known() []discovery.ID

	// ProjectionOptions returns the source's projection settings.
	ProjectionOptions() metric.Options
}

type family struct {
	desc       metric.Descriptor
	promDesc   *prometheus.Desc
	valueType  prometheus.ValueType
	extraLabel string
}

// Collector is a [prometheus.Collector] over the discovered entities of a
// set of targets.
//
// Only known entities whose value can be derived from the current snapshot
// are emitted; an entity whose object is missing from the latest snapshot
// produces no sample.
type Collector struct {
	families map[string]family

	mu      sync.RWMutex
	targets []Target
}

// NewCollector creates a [Collector] with one metric family per descriptor.
func NewCollector(descriptors []metric.Descriptor) *Collector {
	c := &Collector{families: make(map[string]family, len(descriptors))}

	for _, d := range descriptors {
		labels := []string{"source", "proxy", "server"}
		f := family{desc: d, valueType: prometheus.GaugeValue}

		switch d.Kind {
		case metric.IntegerCounter:
			if d.StateClass == metric.TotalIncreasing {
				f.valueType = prometheus.CounterValue
			}
		case metric.DataSizeBytes:
			f.valueType = prometheus.CounterValue
			f.extraLabel = "unit"
		case metric.RawString:
			f.extraLabel = "value"
		}
		if f.extraLabel != "" {
			labels = append(labels, f.extraLabel)
		}

		f.promDesc = prometheus.NewDesc(FamilyName(d), help(d), labels, nil)
		c.families[d.Key] = f
	}

	return c
}

func help(d metric.Descriptor) string {
	switch d.Kind {
	case metric.DataSizeBytes:
		return d.Name + " in the source's configured data size unit."
	case metric.RawString:
		return d.Name + " as reported by HAProxy; the sample value is always 1."
	case metric.Availability, metric.BackendUp:
		return d.Name + " (1 up, 0 down)."
	default:
		return d.Name + "."
	}
}

// SetTargets replaces the set of scraped targets.
func (c *Collector) SetTargets(targets ...Target) {
	c.mu.Lock()
	c.targets = append([]Target(nil), targets...)
	c.mu.Unlock()
}

// Describe implements [prometheus.Collector].
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, f := range c.families {
		ch <- f.promDesc
	}
}

// Collect implements [prometheus.Collector].
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	targets := c.targets
	c.mu.RUnlock()

	for _, t := range targets {
		c.collectTarget(ch, t)
	}
}

func (c *Collector) collectTarget(ch chan<- prometheus.Metric, t Target) {
	snap := t.Current()
	if snap == nil {
		return
	}
	opts := t.ProjectionOptions()
	source := t.Name()

	for _, id := range t.Known() {
		f, ok := c.families[id.Metric]
		if !ok {
			continue
		}
		row, ok := snap.Row(id.Key)
		if !ok {
			continue
		}
		v, ok := metric.ValueOf(row, f.desc, opts)
		if !ok {
			continue
		}

		labels := []string{source, id.Key.Proxy, id.Key.Server}
		sample := 1.0
		switch f.extraLabel {
		case "unit":
			unit := opts.Unit
			if unit == "" {
				unit = metric.DefaultUnit
			}
			labels = append(labels, string(unit))
			sample, _ = v.Float64()
		case "value":
			labels = append(labels, v.Text)
		default:
			sample, _ = v.Float64()
		}

		// label values come from the export and may not be valid UTF-8
		m, err := prometheus.NewConstMetric(f.promDesc, f.valueType, sample, labels...)
		if err != nil {
			m = prometheus.NewInvalidMetric(f.promDesc, fmt.Errorf("source %q entity %s: %w", source, id, err))
		}
		ch <- m
	}
}
