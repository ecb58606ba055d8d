package metrics

import (
	"fmt"
	"sync"
	"time"
)

// DefaultPercentiles are the quantiles a summary reports when none are given.
var DefaultPercentiles = []float64{0.01, 0.05, 0.5, 0.9, 0.95, 0.99, 0.999}

// Summary window defaults.
const (
	DefaultMaxAge     = 10 * time.Minute
	DefaultAgeBuckets = 5
)

type summaryInstance struct {
	percentiles []float64 // shared by every instance of the family
	clock       func() time.Time

	mu     sync.Mutex
	window *slidingWindow
}

func newSummaryInstance(percentiles []float64, maxAge time.Duration, ageBuckets int, clock func() time.Time) *summaryInstance {
	return &summaryInstance{
		percentiles: percentiles,
		clock:       clock,
		window:      newSlidingWindow(maxAge, ageBuckets, clock()),
	}
}

func (s *summaryInstance) observe(v float64) error {
	t := s.clock()
	s.mu.Lock()
	s.window.insert(v, t)
	s.mu.Unlock()
	return nil
}

func (s *summaryInstance) inc(float64) error { return unsupported(MetricTypeSummary, "inc") }
func (s *summaryInstance) dec(float64) error { return unsupported(MetricTypeSummary, "dec") }
func (s *summaryInstance) set(float64) error { return unsupported(MetricTypeSummary, "set") }

func (s *summaryInstance) reset() {
	t := s.clock()
	s.mu.Lock()
	s.window.reset(t)
	s.mu.Unlock()
}

// collect rotates the window, then reports quantiles, sum and count over the
// live buckets. An empty window yields no quantiles.
func (s *summaryInstance) collect() Sample {
	t := s.clock()

	s.mu.Lock()
	s.window.rotate(t)
	sorted := s.window.merged()
	sum, count := s.window.totals()
	s.mu.Unlock()

	out := Sample{Sum: sum, Count: count}
	if len(sorted) == 0 {
		return out
	}
	out.Quantiles = make([]Quantile, len(s.percentiles))
	for i, q := range s.percentiles {
		out.Quantiles[i] = Quantile{Quantile: q, Value: quantileAt(sorted, q)}
	}
	return out
}

func validateSummary(percentiles []float64, maxAge time.Duration, ageBuckets int) error {
	for _, q := range percentiles {
		if !(q >= 0 && q <= 1) {
			return fmt.Errorf("%w: percentile %v outside [0,1]", ErrInvalidOptions, q)
		}
	}
	if maxAge <= 0 {
		return fmt.Errorf("%w: max age must be positive, got %v", ErrInvalidOptions, maxAge)
	}
	if ageBuckets <= 0 {
		return fmt.Errorf("%w: age bucket count must be positive, got %d", ErrInvalidOptions, ageBuckets)
	}
	if maxAge/time.Duration(ageBuckets) <= 0 {
		return fmt.Errorf("%w: max age %v too short for %d buckets", ErrInvalidOptions, maxAge, ageBuckets)
	}
	return nil
}
