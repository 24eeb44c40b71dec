package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/hapulse/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "hapulse"
)

// DiagnosticsFunc returns the diagnostics document served at /api/diagnostics.
// The result must be JSON-encodable and must not contain credentials.
type DiagnosticsFunc func() any

// Server handles HTTP requests for the entity API and metrics.
//
// Server provides these endpoints:
//   - GET /api/entities: all entity states as JSON, optionally ?source=name
//   - GET /api/sources: polling health per source
//   - GET /api/sse: Server-Sent Events stream of entity updates
//   - GET /api/diagnostics: redacted configuration and raw rows
//   - GET /metrics: Prometheus exposition
//   - GET /healthz: 200 when every source's last poll succeeded, 503 otherwise
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store       store.Store
	port        int
	gatherer    prometheus.Gatherer
	diagnostics DiagnosticsFunc
	title       string
	logger      *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	addr       net.Addr

	done chan struct{}
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - st: Store implementation for entity and source data
//   - port: TCP port to listen on (0 picks a free port)
//   - gatherer: metrics served at /metrics; nil disables the endpoint
//   - diagnostics: document served at /api/diagnostics; nil disables the endpoint
//   - title: instance title reported by /api/sources (defaults to "hapulse")
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, port int, gatherer prometheus.Gatherer, diagnostics DiagnosticsFunc, title string, logger *slog.Logger) *Server {
	if title == "" {
		title = defaultTitle
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:       st,
		port:        port,
		gatherer:    gatherer,
		diagnostics: diagnostics,
		title:       title,
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// Handler returns the server's request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/entities", s.handleEntities)
	mux.HandleFunc("/api/sources", s.handleSources)
	mux.HandleFunc("/api/sse", s.handleSSE)
	mux.HandleFunc("/healthz", s.handleHealthz)

	if s.diagnostics != nil {
		mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)
	}
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
			ErrorLog:      slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
			ErrorHandling: promhttp.ContinueOnError,
		}))
	}

	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.mu.Lock()
	s.httpServer = httpServer
	s.addr = ln.Addr()
	s.mu.Unlock()

	go func() {
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		defer close(s.done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", ln.Addr().String())
	return nil
}

// Done is closed once the server has shut down after its context was
// cancelled. It never closes if Start failed or was not called.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Addr returns the address the server is listening on, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// handleEntities returns entity states as JSON.
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	states := s.store.GetAll()
	if source := r.URL.Query().Get("source"); source != "" {
		filtered := states[:0]
		for _, st := range states {
			if st.Source == source {
				filtered = append(filtered, st)
			}
		}
		states = filtered
	}

	s.writeJSON(w, http.StatusOK, states)
}

type sourcesResponse struct {
	Title   string               `json:"title"`
	Sources []store.SourceStatus `json:"sources"`
}

// handleSources returns per-source polling health.
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, sourcesResponse{
		Title:   s.title,
		Sources: s.store.GetSources(),
	})
}

// handleDiagnostics returns the redacted diagnostics document.
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, s.diagnostics())
}

type healthResponse struct {
	Status      string   `json:"status"`
	Unavailable []string `json:"unavailable,omitempty"`
}

// handleHealthz reports whether every source's most recent poll succeeded.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var unavailable []string
	for _, src := range s.store.GetSources() {
		if !src.Available {
			unavailable = append(unavailable, src.Name)
		}
	}

	if len(unavailable) > 0 {
		s.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Unavailable: unavailable})
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// handleSSE streams entity updates via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}

		return rc.Flush()
	}

	source := r.URL.Query().Get("source")
	wanted := func(st store.EntityState) bool {
		return source == "" || st.Source == source
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// subscribe before the initial dump so no update is missed
	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	for _, state := range s.store.GetAll() {
		if !wanted(state) {
			continue
		}
		data, err := json.Marshal(state)
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case state, ok := <-ch:
			if !ok {
				return
			}
			if !wanted(state) {
				continue
			}
			data, err := json.Marshal(state)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}
