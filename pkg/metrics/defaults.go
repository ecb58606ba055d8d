package metrics

import (
	"runtime"
)

// FileSizeBuckets are the histogram buckets for file sizes in bytes.
var FileSizeBuckets = []float64{
	1 << 10,   // 1KiB
	4 << 10,   // 4KiB
	16 << 10,  // 16KiB
	64 << 10,  // 64KiB
	256 << 10, // 256KiB
	1 << 20,   // 1MiB
	4 << 20,   // 4MiB
	10 << 20,  // 10MiB
}

// Built-in metrics fed by the host event source.
//
// # Label Conventions
//
// ## operation label values
//   - create, modify, delete, rename
//
// ## extension label values
//   - lowercase file extension without the dot (md, canvas, png)
//   - "none" for files without an extension
type Builtins struct {
	// FileOperations counts file operations.
	// Labels: operation, extension
	FileOperations *Handle

	// Files is the number of files currently known.
	// Labels: extension
	Files *Handle

	// FileSize tracks sizes of created and modified files in bytes.
	// Labels: extension
	FileSize *Handle

	// ModificationInterval tracks seconds between two modifications of the same file.
	// Labels: extension
	ModificationInterval *Handle

	// EventProcessing tracks how long handling one host event takes, in seconds.
	EventProcessing *Handle

	// Uptime is the process uptime in seconds.
	Uptime *Handle

	// BuildInfo is always 1.
	// Labels: version, goversion
	BuildInfo *Handle
}

// RegisterBuiltins creates the built-in metrics on r. It is idempotent; after
// ClearAllMetrics it must be called again to bring them back.
func RegisterBuiltins(r *Registry, version string) (*Builtins, error) {
	var (
		b   Builtins
		err error
	)

	if b.FileOperations, err = r.CreateCounter(Opts{
		Name:       "file_operations_total",
		Help:       "Total number of file operations",
		LabelNames: []string{"operation", "extension"},
	}); err != nil {
		return nil, err
	}

	if b.Files, err = r.CreateGauge(Opts{
		Name:       "files_total",
		Help:       "Number of files currently present",
		LabelNames: []string{"extension"},
	}); err != nil {
		return nil, err
	}

	if b.FileSize, err = r.CreateHistogram(HistogramOpts{
		Opts: Opts{
			Name:       "file_size_bytes",
			Help:       "Size of created and modified files in bytes",
			LabelNames: []string{"extension"},
		},
		Buckets: FileSizeBuckets,
	}); err != nil {
		return nil, err
	}

	if b.ModificationInterval, err = r.CreateSummary(SummaryOpts{
		Opts: Opts{
			Name:       "file_modification_interval_seconds",
			Help:       "Seconds between consecutive modifications of the same file",
			LabelNames: []string{"extension"},
		},
		Percentiles: []float64{0.5, 0.9, 0.99},
	}); err != nil {
		return nil, err
	}

	if b.EventProcessing, err = r.CreateHistogram(HistogramOpts{
		Opts: Opts{
			Name: "event_processing_seconds",
			Help: "Time spent handling one file event in seconds",
		},
	}); err != nil {
		return nil, err
	}

	if b.Uptime, err = r.CreateGauge(Opts{
		Name: "uptime_seconds",
		Help: "Process uptime in seconds",
	}); err != nil {
		return nil, err
	}

	if b.BuildInfo, err = r.CreateGauge(Opts{
		Name:       "build_info",
		Help:       "Build information (always 1)",
		LabelNames: []string{"version", "goversion"},
	}); err != nil {
		return nil, err
	}
	info, err := b.BuildInfo.With(Labels{"version": version, "goversion": runtime.Version()})
	if err != nil {
		return nil, err
	}
	if err := info.Set(1); err != nil {
		return nil, err
	}

	return &b, nil
}
