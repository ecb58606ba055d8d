package metrics

import (
	"fmt"
	"log/slog"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/metricsd/metricsd/pkg/logging"
)

// RuntimeCollector refreshes Go runtime gauges and the uptime gauge.
type RuntimeCollector struct {
	goroutines   *Handle
	threads      *Handle
	heapAlloc    *Handle
	heapSys      *Handle
	heapInuse    *Handle
	heapObjects  *Handle
	stackInuse   *Handle
	gcPause *Handle
	gcLastPause  *Handle
	gcCycles     *Handle

	// Uptime gauge (from the built-in set); may be nil
	uptime *Handle

	clock     func() time.Time
	startTime time.Time
	logger    *slog.Logger
}

// NewRuntimeCollector registers the runtime gauges on r.
func NewRuntimeCollector(r *Registry, uptime *Handle, logger *slog.Logger) (*RuntimeCollector, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	rc := &RuntimeCollector{
		uptime:    uptime,
		clock:     r.clock,
		startTime: r.clock(),
		logger:    logger,
	}

	gauges := []struct {
		dst        **Handle
		name, help string
	}{
		{&rc.goroutines, "go_goroutines", "Number of goroutines that currently exist"},
		{&rc.threads, "go_threads", "Number of OS threads created"},
		{&rc.heapAlloc, "go_memstats_heap_alloc_bytes", "Number of heap bytes allocated and still in use"},
		{&rc.heapSys, "go_memstats_heap_sys_bytes", "Number of heap bytes obtained from system"},
		{&rc.heapInuse, "go_memstats_heap_inuse_bytes", "Number of heap bytes that are in use"},
		{&rc.heapObjects, "go_memstats_heap_objects", "Number of allocated heap objects"},
		{&rc.stackInuse, "go_memstats_stack_inuse_bytes", "Number of bytes in use by the stack allocator"},
		{&rc.gcPause, "go_gc_pause_seconds", "Cumulative GC pause duration in seconds"},
		{&rc.gcLastPause, "go_gc_last_pause_seconds", "Duration of the last GC pause in seconds"},
		{&rc.gcCycles, "go_gc_cycles", "Number of completed GC cycles"},
	}
	for _, g := range gauges {
		h, err := r.CreateGauge(Opts{Name: g.name, Help: g.help})
		if err != nil {
			return nil, err
		}
		*g.dst = h
	}
	return rc, nil
}

// Collect updates all runtime gauges with current values.
func (rc *RuntimeCollector) Collect() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	set := func(h *Handle, v float64) {
		if h == nil {
			return
		}
		if err := h.Set(v); err != nil {
			// Cleared metrics stay cleared until re-registered.
			rc.logger.Debug("runtime gauge not updated", "metric", h.Name(), "error", err)
		}
	}

	set(rc.uptime, rc.clock().Sub(rc.startTime).Seconds())
	set(rc.goroutines, float64(runtime.NumGoroutine()))
	if p := pprof.Lookup("threadcreate"); p != nil {
		set(rc.threads, float64(p.Count()))
	}
	set(rc.heapAlloc, float64(mem.HeapAlloc))
	set(rc.heapSys, float64(mem.HeapSys))
	set(rc.heapInuse, float64(mem.HeapInuse))
	set(rc.heapObjects, float64(mem.HeapObjects))
	set(rc.stackInuse, float64(mem.StackInuse))

	// PauseTotalNs is cumulative; PauseNs is a 256-entry ring.
	set(rc.gcPause, float64(mem.PauseTotalNs)/1e9)
	if mem.NumGC > 0 {
		set(rc.gcLastPause, float64(mem.PauseNs[(mem.NumGC-1)%256])/1e9)
	}
	set(rc.gcCycles, float64(mem.NumGC))
}

// Start collects once, then on every tick of a cron schedule such as
// "@every 15s" or "*/1 * * * *". The returned function stops the schedule
// and waits for a running collection to finish.
func (rc *RuntimeCollector) Start(schedule string) (stop func(), err error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, rc.Collect); err != nil {
		return nil, fmt.Errorf("invalid runtime schedule %q: %w", schedule, err)
	}

	rc.Collect()
	c.Start()
	rc.logger.Info("runtime collector started", "schedule", schedule)

	return func() {
		<-c.Stop().Done()
		rc.logger.Info("runtime collector stopped")
	}, nil
}
