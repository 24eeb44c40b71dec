// Package main is the entry point for the hapulse CLI.
//
// hapulse can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	hapulse serve -c config.yaml    # Poll sources and serve /metrics
//	hapulse validate -c config.yaml # Validate configuration
//	hapulse check -c config.yaml    # Probe every source once
//	hapulse version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "hapulse",
	Short: "An HAProxy stats poller and Prometheus exporter",
	Long: `hapulse polls HAProxy CSV stats endpoints and exposes every proxy and
server as a set of entities, over a JSON API and a Prometheus /metrics
endpoint.

Quick start:
  1. Create a config file (hapulse.yaml)
  2. Run: hapulse serve -c hapulse.yaml
  3. Scrape http://localhost:8080/metrics

Example config:
  port: 8080
  sources:
    - name: Edge
      url: http://lb.internal:8404/stats;csv
      username: ${HAPROXY_USER:-}
      password: ${HAPROXY_PASSWORD:-}
      scan_interval: 30`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this hapulse binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "hapulse %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
