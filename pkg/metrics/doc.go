// Package metrics is an in-memory measurement store with a Prometheus text
// renderer.
//
// A Registry owns named, typed metric families. Each family keeps one series
// per distinct label assignment, created lazily on first update. Four kinds
// are supported:
//   - Counter: monotonically increasing value (e.g., file operations)
//   - Gauge: value that can go up or down (e.g., files present)
//   - Histogram: cumulative fixed buckets plus sum and count
//   - Summary: quantiles, sum and count over a sliding time window
//
// Every handle exposes the same update contract (Updater); operations
// foreign to a kind fail with ErrUnsupportedOperation instead of corrupting
// state. Creation is idempotent: creating a name twice returns the same
// Handle.
//
// All operations are safe for concurrent use. Counters and gauges are
// lock-free; histogram and summary series each carry their own mutex, so a
// render reads every series consistently without a global lock.
//
// # Usage
//
//	reg := metrics.NewRegistry(metrics.WithPrefix("obsidian_"))
//
//	ops, _ := reg.CreateCounter(metrics.Opts{
//		Name:       "file_operations_total",
//		Help:       "Total number of file operations",
//		LabelNames: []string{"operation"},
//	})
//	s, _ := ops.With(metrics.Labels{"operation": "create"})
//	_ = s.Inc()
//
//	fmt.Print(reg.Render())
//
// The API type layers positional constructors and measured execution on top
// of a Registry:
//
//	api := metrics.NewAPI(reg)
//	err := api.Measure("index_rebuild_seconds", nil, rebuild)
package metrics
