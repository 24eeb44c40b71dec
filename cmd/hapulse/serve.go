package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/hapulse"
	"github.com/jpalmerr/hapulse/config"
)

const (
	shutdownTimeout = 10 * time.Second

	// editors often write a file in several steps
	reloadDebounce = 500 * time.Millisecond
)

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// serveCmd starts polling and the HTTP server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll sources and serve the API",
	Long: `Start hapulse.

The server will:
  - Load configuration from the specified YAML file
  - Fetch every source once and fail if any source is unreachable
  - Poll each source on its scan interval
  - Serve /metrics, /api/entities, /api/sources and /api/diagnostics

With --watch the config file is watched and hapulse restarts with the new
configuration whenever it changes. Invalid edits are logged and ignored.

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  hapulse serve -c config.yaml
  hapulse serve --config /etc/hapulse/config.yaml --watch`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	serveCmd.Flags().Bool("watch", false, "reload when the config file changes")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	watch, _ := cmd.Flags().GetBool("watch")

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inst, err := startInstance(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var changes <-chan struct{}
	if watch {
		watcher, err := watchConfig(configFile, logger)
		if err != nil {
			inst.cancel()
			return err
		}
		defer func() { _ = watcher.Close() }()
		changes = debounce(ctx, watcher, configFile, logger)
	}

	for {
		select {
		case err := <-inst.done:
			inst.cancel()
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil

		case <-ctx.Done():
			// signal received, wait for graceful shutdown with timeout
			return inst.wait(logger)

		case <-changes:
			next, err := config.Load(configFile)
			if err != nil {
				logger.Warn("config reload skipped", "error", err)
				continue
			}

			logger.Info("config changed, restarting")
			if err := inst.wait(logger); err != nil {
				return err
			}
			inst, err = startInstance(ctx, next, logger)
			if err != nil {
				return err
			}
		}
	}
}

// instance is one running HAPulse built from one config.
type instance struct {
	cancel context.CancelFunc
	done   chan error
}

func startInstance(parent context.Context, cfg *config.Config, logger *slog.Logger) (*instance, error) {
	logger.Info("config loaded",
		"sources", len(cfg.Sources),
		"grids", len(cfg.Grids),
		"total", cfg.SourceCount(),
	)

	opts, err := config.Options(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build sources: %w", err)
	}
	opts = append(opts, hapulse.WithLogger(logger))

	hp, err := hapulse.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create hapulse: %w", err)
	}

	ctx, cancel := context.WithCancel(parent)
	inst := &instance{cancel: cancel, done: make(chan error, 1)}

	logger.Info("starting server", "port", cfg.Port)

	// Start blocks until ctx is cancelled
	go func() {
		inst.done <- hp.Start(ctx)
	}()
	return inst, nil
}

// wait cancels the instance and waits for it to stop.
func (i *instance) wait(logger *slog.Logger) error {
	i.cancel()
	select {
	case err := <-i.done:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timed out",
			"timeout", shutdownTimeout.String(),
			"action", "forcing exit",
		)
		return errors.New("shutdown timed out")
	}
}

// watchConfig watches the directory holding path. Editors and config
// management tools replace files by rename, which drops a watch on the
// file itself.
func watchConfig(path string, logger *slog.Logger) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info("watching config", "path", path)
	return watcher, nil
}

// debounce turns the watcher's events for path into change notifications,
// coalescing bursts within reloadDebounce.
func debounce(ctx context.Context, watcher *fsnotify.Watcher, path string, logger *slog.Logger) <-chan struct{} {
	out := make(chan struct{}, 1)
	target := filepath.Clean(path)

	go func() {
		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				logger.Debug("config event", "op", event.Op.String(), "file", event.Name)
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
				} else {
					timer.Reset(reloadDebounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				select {
				case out <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", "error", err)
			}
		}
	}()
	return out
}
