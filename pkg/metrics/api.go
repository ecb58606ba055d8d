package metrics

import (
	"context"
	"fmt"
	"slices"
)

// API is the convenience surface handed to host code: positional
// constructors, lookups and measured execution over one Registry.
type API struct {
	reg *Registry
}

// NewAPI returns an API over reg.
func NewAPI(reg *Registry) *API {
	return &API{reg: reg}
}

// Registry returns the underlying registry.
func (a *API) Registry() *Registry { return a.reg }

// Counter creates or returns a counter.
func (a *API) Counter(name, help string, labelNames ...string) (*Handle, error) {
	return a.reg.CreateCounter(Opts{Name: name, Help: help, LabelNames: labelNames})
}

// Gauge creates or returns a gauge.
func (a *API) Gauge(name, help string, labelNames ...string) (*Handle, error) {
	return a.reg.CreateGauge(Opts{Name: name, Help: help, LabelNames: labelNames})
}

// Histogram creates or returns a histogram. A nil buckets uses DefaultBuckets.
func (a *API) Histogram(name, help string, buckets []float64, labelNames ...string) (*Handle, error) {
	return a.reg.CreateHistogram(HistogramOpts{
		Opts:    Opts{Name: name, Help: help, LabelNames: labelNames},
		Buckets: buckets,
	})
}

// Summary creates or returns a summary with the default window.
// A nil percentiles uses DefaultPercentiles.
func (a *API) Summary(name, help string, percentiles []float64, labelNames ...string) (*Handle, error) {
	return a.reg.CreateSummary(SummaryOpts{
		Opts:        Opts{Name: name, Help: help, LabelNames: labelNames},
		Percentiles: percentiles,
	})
}

// Get looks a metric up by name, with or without the prefix.
func (a *API) Get(name string) (*Handle, bool) { return a.reg.GetMetric(name) }

// Clear removes one metric.
func (a *API) Clear(name string) bool { return a.reg.ClearMetric(name) }

// ClearAll removes every metric.
func (a *API) ClearAll() { a.reg.ClearAllMetrics() }

// Render returns the text exposition.
func (a *API) Render() string { return a.reg.Render() }

// Time starts a timer on an existing histogram or summary.
func (a *API) Time(name string, labels Labels) (StopFunc, error) {
	h, ok := a.reg.GetMetric(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s, err := h.With(labels)
	if err != nil {
		return nil, err
	}
	return s.StartTimer()
}

// Measure runs fn and observes its duration in seconds on the named
// histogram or summary, creating a default-bucket histogram labeled by the
// keys of labels on first use. The duration is observed even when fn fails.
// Instrumentation problems are logged and never stop fn from running; the
// returned error is fn's.
func (a *API) Measure(name string, labels Labels, fn func() error) error {
	stop := a.timer(name, labels)
	defer stop()
	return fn()
}

// MeasureContext is Measure for context-aware work. fn is not started when
// ctx is already done.
func (a *API) MeasureContext(ctx context.Context, name string, labels Labels, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := a.timer(name, labels)
	defer stop()
	return fn(ctx)
}

func (a *API) timer(name string, labels Labels) StopFunc {
	h, ok := a.reg.GetMetric(name)
	if !ok {
		labelNames := make([]string, 0, len(labels))
		for k := range labels {
			labelNames = append(labelNames, k)
		}
		slices.Sort(labelNames)

		var err error
		h, err = a.Histogram(name, "Duration of "+name+" in seconds", nil, labelNames...)
		if err != nil {
			a.reg.logger.Warn("measure: cannot create histogram", "metric", name, "error", err)
			return func() float64 { return 0 }
		}
	}
	s, err := h.With(labels)
	if err == nil {
		var stop StopFunc
		if stop, err = s.StartTimer(); err == nil {
			return stop
		}
	}
	a.reg.logger.Warn("measure: cannot start timer", "metric", h.Name(), "error", err)
	return func() float64 { return 0 }
}
