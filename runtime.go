package hapulse

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/jpalmerr/hapulse/internal/discovery"
	"github.com/jpalmerr/hapulse/internal/exporter"
	"github.com/jpalmerr/hapulse/internal/metric"
	"github.com/jpalmerr/hapulse/internal/poller"
	"github.com/jpalmerr/hapulse/internal/stats"
	"github.com/jpalmerr/hapulse/internal/store"
)

// sourceRuntime ties one source's coordinator to the entity store, the
// Prometheus collector and the refresh callbacks.
type sourceRuntime struct {
	source      Source
	coordinator *poller.Coordinator
	registry    *discovery.Registry
	store       store.Store
	metrics     *exporter.PollMetrics
	callbacks   []func(RefreshResult)
	logger      *slog.Logger
}

func newSourceRuntime(src Source, st store.Store, metrics *exporter.PollMetrics, callbacks []func(RefreshResult), logger *slog.Logger) *sourceRuntime {
	request := poller.Request{
		URL:      src.URL(),
		Username: src.Username(),
		Password: src.Password(),
	}
	fetcher := poller.NewFetcher(poller.NewClient(src.VerifySSL()), request)
	rt := &sourceRuntime{
		source:      src,
		coordinator: poller.NewCoordinator(src.Name(), fetcher, src.ScanInterval(), logger),
		registry:    discovery.NewRegistry(src.Scope(), metric.Descriptors()),
		store:       st,
		metrics:     metrics,
		callbacks:   callbacks,
		logger:      logger.With("source", src.Name()),
	}
	rt.coordinator.Subscribe(rt.handleRefresh)
	return rt
}

// Name implements exporter.Target.
func (rt *sourceRuntime) Name() string {
	return rt.source.Name()
}

// Current implements exporter.Target.
func (rt *sourceRuntime) Current() *stats.Snapshot {
	return rt.coordinator.Current()
}

// Known implements exporter.Target.
func (rt *sourceRuntime) Known() []discovery.ID {
	return rt.registry.Known()
}

// ProjectionOptions implements exporter.Target.
func (rt *sourceRuntime) ProjectionOptions() metric.Options {
	return metric.Options{Unit: rt.source.unit}
}

// handleRefresh runs on the polling goroutine after every poll.
//
// New entities are rendered before they are added to the registry, so an
// id is never known without a stored state. Every known entity is then
// re-rendered from the current snapshot.
func (rt *sourceRuntime) handleRefresh(r poller.Refresh) {
	var discovered []discovery.ID
	if r.Err == nil && r.Snapshot != nil {
		discovered = rt.registry.Discover(r.Snapshot)
		for _, id := range discovered {
			rt.render(id, r)
		}
		rt.registry.Add(discovered...)
	}

	known := rt.registry.Known()
	for _, id := range known {
		rt.render(id, r)
	}

	rt.store.UpdateSource(rt.status(r, len(known)))
	rt.metrics.Observe(r, len(known))

	if len(discovered) > 0 {
		rt.logger.Info("entities discovered",
			"count", len(discovered),
			"total", len(known),
		)
	}

	if len(rt.callbacks) == 0 {
		return
	}
	result := RefreshResult{
		Source:              rt.source.Name(),
		Scope:               rt.source.Scope(),
		Err:                 r.Err,
		ConsecutiveFailures: r.ConsecutiveFailures,
		Latency:             r.Latency,
		CheckedAt:           r.At,
		Rows:                r.Snapshot.Len(),
		Entities:            len(known),
	}
	for _, id := range discovered {
		result.Discovered = append(result.Discovered, id.String())
	}
	for _, cb := range rt.callbacks {
		invokeCallbackSafe(cb, result, rt.logger)
	}
}

// render projects one entity from the refresh's snapshot and stores it.
func (rt *sourceRuntime) render(id discovery.ID, r poller.Refresh) {
	d, ok := metric.Lookup(id.Metric)
	if !ok {
		return
	}

	state := store.EntityState{
		ID:        id.String(),
		Source:    rt.source.Name(),
		Proxy:     id.Key.Proxy,
		Server:    id.Key.Server,
		Metric:    d.Key,
		Name:      d.Name,
		Device:    discovery.DeviceName(rt.source.Name(), id.Key),
		Model:     discovery.Model(id.Key.Server),
		Kind:      d.Kind.String(),
		Available: r.Err == nil,
		UpdatedAt: r.At,
	}
	if d.Kind == metric.DataSizeBytes {
		state.Unit = rt.source.DataSizeUnit()
	}

	if r.Snapshot != nil {
		state.UpdatedAt = r.Snapshot.FetchedAt()
		if row, ok := r.Snapshot.Row(id.Key); ok {
			if v, ok := metric.ValueOf(row, d, rt.ProjectionOptions()); ok {
				state.Value = v.Interface()
			}
			state.Attributes = metric.Attributes(row, d)
		}
	}

	rt.store.Update(state)
}

// status builds the source's summary from the coordinator's counters.
func (rt *sourceRuntime) status(r poller.Refresh, entities int) store.SourceStatus {
	var lastErr *string
	if r.Err != nil {
		s := r.Err.Error()
		lastErr = &s
	}
	return store.SourceStatus{
		Name:                rt.source.Name(),
		Scope:               rt.source.Scope(),
		URL:                 rt.source.URL(),
		IntervalSeconds:     int(rt.source.ScanInterval().Seconds()),
		Available:           r.Err == nil,
		ConsecutiveFailures: r.ConsecutiveFailures,
		LastError:           lastErr,
		LastSuccess:         rt.coordinator.LastSuccess(),
		LastAttempt:         r.At,
		Rows:                r.Snapshot.Len(),
		Entities:            entities,
	}
}

// invokeCallbackSafe calls a refresh callback with panic recovery.
// Panics are logged with a correlation ID but do not propagate. logger is
// expected to carry the source attribute.
func invokeCallbackSafe(cb func(RefreshResult), result RefreshResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("refresh callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	cb(result)
}
