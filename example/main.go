// Command example runs hapulse against two mock HAProxy instances.
//
// Usage:
//
//	go run ./example
//
// Then scrape http://localhost:8080/metrics or browse /api/entities.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/hapulse"
)

func main() {
	// start mock load balancers (see mock_server.go)
	go StartMockHAProxy(":9901", newMockHAProxy("web", "app1", "app2", "app3"))
	go StartMockHAProxy(":9902", newMockHAProxy("web", "app1", "app2", "app3"))
	time.Sleep(100 * time.Millisecond)

	// grid API: 2 sites = 2 sources from one declaration
	sources, err := hapulse.NewSourceGrid("Edge",
		hapulse.WithURLTemplate("http://localhost:{{.port}}/stats;csv"),
		hapulse.WithDimensions(map[string][]string{
			"port": {"9901", "9902"},
		}),
		hapulse.WithGridSourceOptions(
			hapulse.WithScanInterval(5*time.Second),
			hapulse.WithDataSizeUnit("kB"),
		),
	)
	if err != nil {
		slog.Error("failed to create source grid", "error", err)
		os.Exit(1)
	}

	hp, err := hapulse.New(
		hapulse.WithSources(sources...),
		hapulse.WithPort(8080),
		hapulse.WithTitle("hapulse demo"),
		hapulse.WithRefreshCallback(func(r hapulse.RefreshResult) {
			if len(r.Discovered) > 0 {
				slog.Info("new entities", "source", r.Source, "count", len(r.Discovered))
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create hapulse", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  hapulse demo")
	fmt.Println()
	fmt.Println("  Sources: 2 mock load balancers (via Grid), 5s scan interval")
	fmt.Println()
	fmt.Println("  http://localhost:8080/metrics")
	fmt.Println("  http://localhost:8080/api/entities")
	fmt.Println("  http://localhost:8080/api/diagnostics")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := hp.Start(ctx); err != nil {
		slog.Error("hapulse error", "error", err)
		os.Exit(1)
	}
}
