package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Handle is the public reference to one metric family. It forwards every call
// to the registry-owned family by name, so it stays safe to use after the
// family is cleared: calls then fail with ErrNotFound, or reach a family
// re-created under the same name and kind.
type Handle struct {
	reg        *Registry
	name       string
	help       string
	kind       MetricType
	labelNames []string

	fam atomic.Pointer[family]
}

var (
	_ Updater = (*Handle)(nil)
	_ Updater = (*Series)(nil)
)

func newHandle(r *Registry, f *family) *Handle {
	h := &Handle{
		reg:        r,
		name:       f.name,
		help:       f.help,
		kind:       f.kind,
		labelNames: f.labelNames,
	}
	h.fam.Store(f)
	return h
}

// Name returns the full, prefixed metric name.
func (h *Handle) Name() string { return h.name }

// Help returns the help text.
func (h *Handle) Help() string { return h.help }

// Type returns the metric type.
func (h *Handle) Type() MetricType { return h.kind }

// LabelNames returns the declared label names.
func (h *Handle) LabelNames() []string { return append([]string(nil), h.labelNames...) }

// family resolves the live family, re-resolving by name after a clear.
func (h *Handle) family() (*family, error) {
	if f := h.fam.Load(); f != nil && !f.removed.Load() {
		return f, nil
	}
	f, ok := h.reg.lookup(h.name)
	if !ok || f.kind != h.kind {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, h.name)
	}
	h.fam.Store(f)
	return f, nil
}

// With returns the series for a label assignment. The assignment must name
// exactly the declared label names; its order does not matter.
func (h *Handle) With(labels Labels) (*Series, error) {
	f, err := h.family()
	if err != nil {
		return nil, err
	}
	if err := ValidateLabels(f.labelNames, labels); err != nil {
		return nil, fmt.Errorf("metric %q: %w", h.name, err)
	}
	return &Series{h: h, fam: f, key: CanonicalKey(labels), labels: copyLabels(labels)}, nil
}

// unlabeled runs fn on the series of an unlabeled metric.
func (h *Handle) unlabeled(fn func(*Series) error) error {
	s, err := h.With(nil)
	if err != nil {
		return err
	}
	return fn(s)
}

// Inc adds 1 to an unlabeled metric.
func (h *Handle) Inc() error { return h.unlabeled((*Series).Inc) }

// Add adds delta to an unlabeled metric.
func (h *Handle) Add(delta float64) error {
	return h.unlabeled(func(s *Series) error { return s.Add(delta) })
}

// Dec subtracts 1 from an unlabeled gauge.
func (h *Handle) Dec() error { return h.unlabeled((*Series).Dec) }

// Sub subtracts delta from an unlabeled gauge.
func (h *Handle) Sub(delta float64) error {
	return h.unlabeled(func(s *Series) error { return s.Sub(delta) })
}

// Set sets an unlabeled gauge.
func (h *Handle) Set(value float64) error {
	return h.unlabeled(func(s *Series) error { return s.Set(value) })
}

// Observe records an observation on an unlabeled histogram or summary.
func (h *Handle) Observe(value float64) error {
	return h.unlabeled(func(s *Series) error { return s.Observe(value) })
}

// StartTimer starts a timer on an unlabeled histogram or summary.
func (h *Handle) StartTimer() (StopFunc, error) {
	s, err := h.With(nil)
	if err != nil {
		return nil, err
	}
	return s.StartTimer()
}

// Reset zeroes every series of the family, keeping the label combinations.
func (h *Handle) Reset() error {
	f, err := h.family()
	if err != nil {
		return err
	}
	f.reset()
	return nil
}

// Remove drops one label combination. It reports whether the series existed.
func (h *Handle) Remove(labels Labels) (bool, error) {
	f, err := h.family()
	if err != nil {
		return false, err
	}
	if err := ValidateLabels(f.labelNames, labels); err != nil {
		return false, fmt.Errorf("metric %q: %w", h.name, err)
	}
	return f.remove(CanonicalKey(labels)), nil
}

// Quantiles computes the current quantiles of a summary series.
// It returns nil when the window holds no observations.
func (h *Handle) Quantiles(labels Labels) ([]Quantile, error) {
	f, err := h.family()
	if err != nil {
		return nil, err
	}
	if f.kind != MetricTypeSummary {
		return nil, fmt.Errorf("metric %q: %w", h.name, unsupported(f.kind, "quantiles"))
	}
	if err := ValidateLabels(f.labelNames, labels); err != nil {
		return nil, fmt.Errorf("metric %q: %w", h.name, err)
	}
	inst, ok := f.get(CanonicalKey(labels))
	if !ok {
		return nil, nil
	}
	return inst.collect().Quantiles, nil
}

// Series is one label combination of a metric family.
type Series struct {
	h      *Handle
	fam    *family
	key    string
	labels Labels
}

// apply resolves the live family and runs op against it.
func (s *Series) apply(op func(*family) error) error {
	f, err := s.h.family()
	if err != nil {
		return err
	}
	if f != s.fam {
		// The family was re-created; its label schema may differ.
		if err := ValidateLabels(f.labelNames, s.labels); err != nil {
			return fmt.Errorf("metric %q: %w", s.h.name, err)
		}
	}
	return op(f)
}

// Labels returns the series' label assignment.
func (s *Series) Labels() Labels { return copyLabels(s.labels) }

// Inc adds 1.
func (s *Series) Inc() error { return s.Add(1) }

// Add adds delta. Counters reject negative deltas with ErrInvalidOperation.
func (s *Series) Add(delta float64) error {
	return s.update(func(i instance) error { return i.inc(delta) })
}

// Dec subtracts 1.
func (s *Series) Dec() error { return s.Sub(1) }

// Sub subtracts delta.
func (s *Series) Sub(delta float64) error {
	return s.update(func(i instance) error { return i.dec(delta) })
}

// Set replaces the value.
func (s *Series) Set(value float64) error {
	return s.update(func(i instance) error { return i.set(value) })
}

// Observe records one observation.
func (s *Series) Observe(value float64) error {
	return s.update(func(i instance) error { return i.observe(value) })
}

// StartTimer returns a StopFunc that observes the elapsed seconds once.
func (s *Series) StartTimer() (StopFunc, error) {
	f, err := s.h.family()
	if err != nil {
		return nil, err
	}
	if f.kind != MetricTypeHistogram && f.kind != MetricTypeSummary {
		return nil, fmt.Errorf("metric %q: %w", s.h.name, unsupported(f.kind, "startTimer"))
	}

	clock := s.h.reg.clock
	start := clock()
	var (
		once    sync.Once
		elapsed float64
	)
	return func() float64 {
		once.Do(func() {
			elapsed = clock().Sub(start).Seconds()
			if err := s.Observe(elapsed); err != nil {
				s.h.reg.logger.Debug("timer observation dropped", "metric", s.h.name, "error", err)
			}
		})
		return elapsed
	}, nil
}

func (s *Series) update(op func(instance) error) error {
	return s.apply(func(f *family) error {
		if err := f.apply(s.key, s.labels, op); err != nil {
			return fmt.Errorf("metric %q: %w", f.name, err)
		}
		return nil
	})
}
