// Package cli provides the command-line interface for metricsd.
//
// Commands:
//   - serve: Run the exporter (registry, built-in metrics, runtime
//     collector, optional directory watcher, HTTP endpoints)
//   - scrape: Fetch and summarize any Prometheus text endpoint
//   - config: Display effective configuration and where each value came from
//   - version: Show metricsd version
//
// Configuration is layered: defaults, global file, local file (or --config),
// METRICSD_* environment variables, then flags.
package cli
