package hapulse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/hapulse/internal/exporter"
	"github.com/jpalmerr/hapulse/internal/metric"
	"github.com/jpalmerr/hapulse/internal/poller"
	"github.com/jpalmerr/hapulse/internal/server"
	"github.com/jpalmerr/hapulse/internal/store"
)

const defaultPort = 8080

// ErrAlreadyRunning is returned by [HAPulse.Start] while a previous call
// is still running.
var ErrAlreadyRunning = errors.New("hapulse is already running")

// HAPulse polls HAProxy stats sources and serves the derived entities.
//
// HAPulse is created using [New] with functional options and started with
// [HAPulse.Start]. The typical lifecycle is:
//
//	src, err := hapulse.NewSource("Edge", "http://10.0.0.1:8822/stats;csv")
//	if err != nil {
//	    return err
//	}
//	hp, err := hapulse.New(hapulse.WithSource(src))
//	if err != nil {
//	    return err
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	hp.Start(ctx) // blocks until context cancelled
//
// The caller controls the lifecycle via the context. Cancel the context to
// trigger graceful shutdown.
type HAPulse struct {
	title            string
	sources          []Source
	port             int
	logger           *slog.Logger
	registry         *prometheus.Registry
	validateOnStart  bool
	refreshCallbacks []func(RefreshResult)

	mu       sync.Mutex
	running  bool
	runtimes []*sourceRuntime
	addr     net.Addr
}

// New creates a new [HAPulse] instance with the given options.
//
// At least one source must be configured via [WithSource] or [WithSources].
// Source names and scopes must be unique. The HTTP port defaults to 8080.
//
// Returns an error if no sources are configured or if any option is invalid.
func New(opts ...Option) (*HAPulse, error) {
	cfg := &hpConfig{
		port: defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.sources) == 0 {
		return nil, errors.New("at least one source is required")
	}

	names := make(map[string]bool, len(cfg.sources))
	scopes := make(map[string]bool, len(cfg.sources))
	for _, src := range cfg.sources {
		if src.name == "" {
			return nil, errors.New("source must be created with NewSource")
		}
		if names[src.name] {
			return nil, fmt.Errorf("duplicate source name: %q", src.name)
		}
		names[src.name] = true
		if scopes[src.scope] {
			return nil, fmt.Errorf("duplicate source scope: %q", src.scope)
		}
		scopes[src.scope] = true
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HAPulse{
		title:            cfg.title,
		sources:          cfg.sources,
		port:             cfg.port,
		logger:           logger,
		registry:         cfg.registry,
		validateOnStart:  cfg.validateOnStart,
		refreshCallbacks: cfg.refreshCallbacks,
	}, nil
}

// Start polls every source and serves the API until ctx is cancelled.
//
// Start is a blocking call. It proceeds in order:
//
//   - With [WithSetupValidation], every source is checked with one request
//   - The first refresh of every source runs concurrently; any failure
//     stops all sources and is returned
//   - The HTTP server starts on the configured port
//   - Each source is then polled on its own scan interval
//
// Returns nil on graceful shutdown, including cancellation during startup.
// After Start returns the HTTP port has been released, so Start may be
// called again.
func (hp *HAPulse) Start(ctx context.Context) error {
	hp.mu.Lock()
	if hp.running {
		hp.mu.Unlock()
		return ErrAlreadyRunning
	}
	hp.running = true
	hp.mu.Unlock()
	defer func() {
		hp.mu.Lock()
		hp.running = false
		hp.runtimes = nil
		hp.addr = nil
		hp.mu.Unlock()
	}()

	hp.logger.Info("hapulse starting", "source_count", len(hp.sources))

	if ctx.Err() != nil {
		return nil
	}

	if hp.validateOnStart {
		if err := hp.Validate(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}

	reg := hp.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	collector := exporter.NewCollector(metric.Descriptors())
	if err := reg.Register(collector); err != nil {
		return fmt.Errorf("failed to register collector: %w", err)
	}
	pollMetrics := exporter.NewPollMetrics(reg)
	defer func() {
		reg.Unregister(collector)
		pollMetrics.Unregister(reg)
	}()

	entityStore := store.NewMemoryStore()

	runtimes := make([]*sourceRuntime, len(hp.sources))
	targets := make([]exporter.Target, len(hp.sources))
	for i, src := range hp.sources {
		rt := newSourceRuntime(src, entityStore, pollMetrics, hp.refreshCallbacks, hp.logger)
		runtimes[i] = rt
		targets[i] = rt
	}

	stopAll := func() {
		for _, rt := range runtimes {
			rt.coordinator.Stop()
		}
	}

	// the coordinators outlive the group, so they get ctx and not a group context
	var g errgroup.Group
	for _, rt := range runtimes {
		rt := rt
		g.Go(func() error {
			return rt.coordinator.Start(ctx)
		})
	}
	if err := g.Wait(); err != nil {
		stopAll()
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("initial refresh failed: %w", err)
	}

	collector.SetTargets(targets...)

	hp.mu.Lock()
	hp.runtimes = runtimes
	hp.mu.Unlock()

	httpServer := server.NewServer(entityStore, hp.port, reg, hp.diagnosticsDocument, hp.title, hp.logger)
	if err := httpServer.Start(ctx); err != nil {
		stopAll()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	hp.mu.Lock()
	hp.addr = httpServer.Addr()
	hp.mu.Unlock()

	for _, src := range hp.sources {
		hp.logger.Info("polling configured",
			"source", src.Name(),
			"scope", src.Scope(),
			"interval", src.ScanInterval().String(),
		)
	}

	<-ctx.Done()
	stopAll()
	<-httpServer.Done()
	hp.logger.Info("hapulse stopped")
	return nil
}

// Validate checks every source concurrently with a single request.
//
// The returned error matches [ErrCannotConnect] and names the first source
// that failed. Validate does not require Start.
func (hp *HAPulse) Validate(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range hp.sources {
		src := src
		g.Go(func() error {
			client := poller.NewClient(src.VerifySSL())
			defer client.Close()

			err := poller.Validate(ctx, client, poller.Request{
				URL:      src.URL(),
				Username: src.Username(),
				Password: src.Password(),
			})
			if err != nil {
				return fmt.Errorf("source %q: %w", src.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Sources returns a copy of the configured sources.
func (hp *HAPulse) Sources() []Source {
	cp := make([]Source, len(hp.sources))
	copy(cp, hp.sources)
	return cp
}

// Port returns the configured HTTP port.
func (hp *HAPulse) Port() int {
	return hp.port
}

// Title returns the configured title, empty when unset.
func (hp *HAPulse) Title() string {
	return hp.title
}

// Addr returns the HTTP server's listen address while Start is serving,
// nil otherwise.
func (hp *HAPulse) Addr() net.Addr {
	hp.mu.Lock()
	defer hp.mu.Unlock()
	return hp.addr
}

// Diagnostics returns the diagnostics export of every source in
// configuration order. Credentials are replaced by [Redacted]. Row data is
// present only while Start is running and after a successful poll.
func (hp *HAPulse) Diagnostics() []SourceDiagnostics {
	hp.mu.Lock()
	runtimes := hp.runtimes
	hp.mu.Unlock()

	out := make([]SourceDiagnostics, len(hp.sources))
	for i, src := range hp.sources {
		if runtimes != nil {
			out[i] = newDiagnostics(src, runtimes[i].Current())
		} else {
			out[i] = newDiagnostics(src, nil)
		}
	}
	return out
}

func (hp *HAPulse) diagnosticsDocument() any {
	return hp.Diagnostics()
}
