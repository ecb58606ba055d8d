package metrics

import (
	"fmt"
	"math"
)

// MetricType represents the type of a metric.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
	MetricTypeSummary   MetricType = "summary"
)

// StopFunc ends a timer started with StartTimer. The first call observes the
// elapsed wall-clock seconds and returns them; later calls do nothing and
// return the same value.
type StopFunc func() float64

// Updater is the update contract shared by every metric kind.
// Operations foreign to a kind fail with ErrUnsupportedOperation.
type Updater interface {
	// Inc adds 1.
	Inc() error
	// Add adds delta. Counters reject negative deltas.
	Add(delta float64) error
	// Dec subtracts 1. Gauges only.
	Dec() error
	// Sub subtracts delta. Gauges only.
	Sub(delta float64) error
	// Set replaces the value. Gauges only.
	Set(value float64) error
	// Observe records one observation. Histograms and summaries only.
	Observe(value float64) error
	// StartTimer starts a timer that observes its duration when stopped.
	// Histograms and summaries only.
	StartTimer() (StopFunc, error)
}

// Bucket is one cumulative histogram bucket.
type Bucket struct {
	UpperBound float64
	Count      uint64
}

// Quantile is one computed summary quantile.
type Quantile struct {
	Quantile float64
	Value    float64
}

// Sample is a point-in-time copy of one series.
// Value is set for counters and gauges; the rest for histograms and summaries.
type Sample struct {
	Labels    Labels
	Value     float64
	Buckets   []Bucket
	Quantiles []Quantile
	Sum       float64
	Count     uint64
}

// Family is a point-in-time copy of one metric family.
type Family struct {
	Name       string
	Help       string
	Type       MetricType
	LabelNames []string
	Samples    []Sample
}

// instance is the per-series aggregate behind every label combination.
// Every kind implements the full set and rejects what it does not support.
type instance interface {
	inc(delta float64) error
	dec(delta float64) error
	set(v float64) error
	observe(v float64) error
	reset()
	collect() Sample
}

// ============================================================================
// Counter
// ============================================================================

type counterInstance struct {
	value atomicFloat64
}

func (c *counterInstance) inc(delta float64) error {
	if delta < 0 || math.IsNaN(delta) {
		return fmt.Errorf("%w: counter cannot decrease (delta %v)", ErrInvalidOperation, delta)
	}
	c.value.Add(delta)
	return nil
}

func (c *counterInstance) dec(float64) error { return unsupported(MetricTypeCounter, "dec") }
func (c *counterInstance) set(float64) error { return unsupported(MetricTypeCounter, "set") }
func (c *counterInstance) observe(float64) error { return unsupported(MetricTypeCounter, "observe") }
func (c *counterInstance) reset() { c.value.Store(0) }
func (c *counterInstance) collect() Sample { return Sample{Value: c.value.Load()} }

// ============================================================================
// Gauge
// ============================================================================

type gaugeInstance struct {
	value atomicFloat64
}

func (g *gaugeInstance) inc(delta float64) error {
	g.value.Add(delta)
	return nil
}

func (g *gaugeInstance) dec(delta float64) error {
	g.value.Add(-delta)
	return nil
}

func (g *gaugeInstance) set(v float64) error {
	g.value.Store(v)
	return nil
}

func (g *gaugeInstance) observe(float64) error { return unsupported(MetricTypeGauge, "observe") }
func (g *gaugeInstance) reset() { g.value.Store(0) }
func (g *gaugeInstance) collect() Sample { return Sample{Value: g.value.Load()} }
