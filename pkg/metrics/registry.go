package metrics

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/metricsd/metricsd/pkg/logging"
)

// Opts are the options shared by every metric kind.
type Opts struct {
	// Name is the metric name without the registry prefix.
	Name string
	// Help is the help text. The first creation of a name wins.
	Help string
	// LabelNames declares the labels every series must assign.
	LabelNames []string
}

// HistogramOpts configures a histogram.
type HistogramOpts struct {
	Opts
	// Buckets are the upper bounds; they are sorted and +Inf is implied.
	// DefaultBuckets is used when empty.
	Buckets []float64
}

// SummaryOpts configures a summary.
type SummaryOpts struct {
	Opts
	// Percentiles are the reported quantiles in [0,1].
	// DefaultPercentiles is used when empty.
	Percentiles []float64
	// MaxAge bounds how far back observations are kept. Defaults to DefaultMaxAge.
	MaxAge time.Duration
	// AgeBuckets is the number of rotating slices in the window.
	// Defaults to DefaultAgeBuckets.
	AgeBuckets int
}

// Option configures a Registry.
type Option func(*Registry)

// WithPrefix sets the prefix prepended to every metric name.
func WithPrefix(prefix string) Option {
	return func(r *Registry) { r.prefix = prefix }
}

// WithDefaultLabels sets labels merged into every rendered series.
// A series' own label of the same name takes precedence. Names that fail
// ValidateDefaultLabels are dropped with a warning.
func WithDefaultLabels(labels Labels) Option {
	return func(r *Registry) { r.defaultLabels = copyLabels(labels) }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock sets the time source used by timers and summary windows.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// Registry holds all metric families.
type Registry struct {
	prefix        string
	defaultLabels Labels
	clock         func() time.Time
	logger        *slog.Logger

	mu       sync.RWMutex
	families map[string]*family
	order    []*family // creation order, used for rendering
}

// NewRegistry creates a new metric registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		clock:    time.Now,
		logger:   logging.Nop(),
		families: make(map[string]*family),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.dropInvalidDefaults()
	return r
}

// dropInvalidDefaults removes default labels that would make every rendered
// line unparsable.
func (r *Registry) dropInvalidDefaults() {
	for name := range r.defaultLabels {
		if err := validateDefaultLabelName(name); err != nil {
			r.logger.Warn("ignoring default label", "label", name, "error", err)
			delete(r.defaultLabels, name)
		}
	}
	if len(r.defaultLabels) == 0 {
		r.defaultLabels = nil
	}
}

// Prefix returns the configured name prefix.
func (r *Registry) Prefix() string { return r.prefix }

// DefaultLabels returns a copy of the labels merged into every series.
func (r *Registry) DefaultLabels() Labels { return copyLabels(r.defaultLabels) }

// CreateCounter creates a counter, or returns the existing handle for its name.
func (r *Registry) CreateCounter(opts Opts) (*Handle, error) {
	return r.create(MetricTypeCounter, opts, func() (func() instance, error) {
		return func() instance { return &counterInstance{} }, nil
	})
}

// CreateGauge creates a gauge, or returns the existing handle for its name.
func (r *Registry) CreateGauge(opts Opts) (*Handle, error) {
	return r.create(MetricTypeGauge, opts, func() (func() instance, error) {
		return func() instance { return &gaugeInstance{} }, nil
	})
}

// CreateHistogram creates a histogram, or returns the existing handle for its name.
func (r *Registry) CreateHistogram(opts HistogramOpts) (*Handle, error) {
	return r.create(MetricTypeHistogram, opts.Opts, func() (func() instance, error) {
		bounds, err := normalizeBuckets(opts.Buckets)
		if err != nil {
			return nil, err
		}
		return func() instance { return newHistogramInstance(bounds) }, nil
	})
}

// CreateSummary creates a summary, or returns the existing handle for its name.
func (r *Registry) CreateSummary(opts SummaryOpts) (*Handle, error) {
	return r.create(MetricTypeSummary, opts.Opts, func() (func() instance, error) {
		percentiles := slices.Clone(opts.Percentiles)
		if len(percentiles) == 0 {
			percentiles = slices.Clone(DefaultPercentiles)
		}
		slices.Sort(percentiles)
		percentiles = slices.Compact(percentiles)

		maxAge, ageBuckets := opts.MaxAge, opts.AgeBuckets
		if maxAge == 0 {
			maxAge = DefaultMaxAge
		}
		if ageBuckets == 0 {
			ageBuckets = DefaultAgeBuckets
		}
		if err := validateSummary(percentiles, maxAge, ageBuckets); err != nil {
			return nil, err
		}
		return func() instance {
			return newSummaryInstance(percentiles, maxAge, ageBuckets, r.clock)
		}, nil
	})
}

// create is idempotent: an existing family with the same full name is
// returned as-is when its kind and label names agree with opts.
func (r *Registry) create(kind MetricType, opts Opts, build func() (func() instance, error)) (*Handle, error) {
	name := r.prefix + opts.Name
	if err := validateMetricName(name); err != nil {
		return nil, err
	}
	if err := validateLabelNames(kind, opts.LabelNames); err != nil {
		return nil, fmt.Errorf("metric %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.families[name]; ok {
		if f.kind != kind {
			return nil, fmt.Errorf("%w: %q is a %s, not a %s", ErrTypeConflict, name, f.kind, kind)
		}
		if !sameLabelNames(f.labelNames, opts.LabelNames) {
			return nil, fmt.Errorf("%w: %q declared with labels %v, got %v", ErrLabelSchemaConflict, name, f.labelNames, opts.LabelNames)
		}
		return f.handle, nil
	}

	newInstance, err := build()
	if err != nil {
		return nil, fmt.Errorf("metric %q: %w", name, err)
	}

	f := newFamily(name, opts.Help, kind, slices.Clone(opts.LabelNames), newInstance)
	f.handle = newHandle(r, f)
	r.families[name] = f
	r.order = append(r.order, f)

	r.logger.Debug("metric created", "metric", name, "type", kind, "labels", opts.LabelNames)
	return f.handle, nil
}

func (r *Registry) lookup(fullName string) (*family, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.families[fullName]
	return f, ok
}

// resolve finds a family by name with or without the prefix.
// The caller must hold r.mu.
func (r *Registry) resolve(name string) (*family, bool) {
	if f, ok := r.families[r.prefix+name]; ok {
		return f, true
	}
	if r.prefix != "" && strings.HasPrefix(name, r.prefix) {
		f, ok := r.families[name]
		return f, ok
	}
	return nil, false
}

// GetMetric returns the handle for a metric name, with or without the prefix.
func (r *Registry) GetMetric(name string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.resolve(name)
	if !ok {
		return nil, false
	}
	return f.handle, true
}

// ClearMetric removes one family and all its series.
// It reports whether the metric existed.
func (r *Registry) ClearMetric(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.resolve(name)
	if !ok {
		return false
	}
	f.removed.Store(true)
	delete(r.families, f.name)
	r.order = slices.DeleteFunc(r.order, func(o *family) bool { return o == f })

	r.logger.Debug("metric cleared", "metric", f.name)
	return true
}

// ClearAllMetrics drops every family. Nothing is re-created afterwards.
func (r *Registry) ClearAllMetrics() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.order {
		f.removed.Store(true)
	}
	n := len(r.order)
	r.families = make(map[string]*family)
	r.order = nil

	r.logger.Debug("all metrics cleared", "count", n)
}

// Families returns a snapshot of every family in creation order.
// Each series is internally consistent; the set as a whole is not taken atomically.
func (r *Registry) Families() []Family {
	r.mu.RLock()
	fams := slices.Clone(r.order)
	r.mu.RUnlock()

	out := make([]Family, 0, len(fams))
	for _, f := range fams {
		out = append(out, f.snapshot())
	}
	return out
}
