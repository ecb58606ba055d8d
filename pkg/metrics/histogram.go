package metrics

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// DefaultBuckets are the default histogram buckets for durations (in seconds).
var DefaultBuckets = []float64{
	0.001, // 1ms
	0.005, // 5ms
	0.01,  // 10ms
	0.025, // 25ms
	0.05,  // 50ms
	0.1,   // 100ms
	0.25,  // 250ms
	0.5,   // 500ms
	1,     // 1s
	2.5,   // 2.5s
	5,     // 5s
	10,    // 10s
}

// normalizeBuckets sorts and dedupes upper bounds and drops an explicit +Inf,
// which is always implied.
func normalizeBuckets(buckets []float64) ([]float64, error) {
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	out := make([]float64, 0, len(buckets))
	for _, b := range buckets {
		if math.IsNaN(b) {
			return nil, fmt.Errorf("%w: NaN bucket bound", ErrInvalidOptions)
		}
		if math.IsInf(b, 1) {
			continue
		}
		out = append(out, b)
	}
	sort.Float64s(out)
	deduped := out[:0]
	for i, b := range out {
		if i > 0 && b == out[i-1] {
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped, nil
}

type histogramInstance struct {
	bounds []float64 // shared by every instance of the family

	mu     sync.Mutex
	counts []uint64 // per bucket, non-cumulative; last slot is +Inf
	sum    float64
	count  uint64
}

func newHistogramInstance(bounds []float64) *histogramInstance {
	return &histogramInstance{
		bounds: bounds,
		counts: make([]uint64, len(bounds)+1),
	}
}

func (h *histogramInstance) observe(v float64) error {
	// First bound >= v; values above every bound (and NaN) land in +Inf.
	i := sort.SearchFloat64s(h.bounds, v)

	h.mu.Lock()
	h.counts[i]++
	h.sum += v
	h.count++
	h.mu.Unlock()
	return nil
}

func (h *histogramInstance) inc(float64) error { return unsupported(MetricTypeHistogram, "inc") }
func (h *histogramInstance) dec(float64) error { return unsupported(MetricTypeHistogram, "dec") }
func (h *histogramInstance) set(float64) error { return unsupported(MetricTypeHistogram, "set") }

func (h *histogramInstance) reset() {
	h.mu.Lock()
	clear(h.counts)
	h.sum = 0
	h.count = 0
	h.mu.Unlock()
}

// collect returns cumulative buckets, the last one being +Inf.
func (h *histogramInstance) collect() Sample {
	buckets := make([]Bucket, len(h.counts))

	h.mu.Lock()
	var cumulative uint64
	for i, c := range h.counts {
		cumulative += c
		bound := math.Inf(1)
		if i < len(h.bounds) {
			bound = h.bounds[i]
		}
		buckets[i] = Bucket{UpperBound: bound, Count: cumulative}
	}
	s := Sample{Buckets: buckets, Sum: h.sum, Count: h.count}
	h.mu.Unlock()

	return s
}
