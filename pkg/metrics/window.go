package metrics

import (
	"math"
	"sort"
	"time"
)

// ageBucket holds the observations made during one time slice.
type ageBucket struct {
	samples []float64 // sorted
	sum     float64
	count   uint64
}

func (b *ageBucket) clear() {
	b.samples = b.samples[:0]
	b.sum = 0
	b.count = 0
}

// slidingWindow approximates "the last maxAge of observations" with a ring of
// age buckets, each covering maxAge/len(buckets). Observations go to the head
// bucket only. Every elapsed slice moves the head one step forward and clears
// the bucket it lands on, which is the oldest one. Eviction is therefore one
// slice at a time rather than per observation.
//
// slidingWindow is not safe for concurrent use.
type slidingWindow struct {
	buckets   []ageBucket
	head      int
	headStart time.Time
	slice     time.Duration
}

func newSlidingWindow(maxAge time.Duration, ageBuckets int, start time.Time) *slidingWindow {
	return &slidingWindow{
		buckets:   make([]ageBucket, ageBuckets),
		headStart: start,
		slice:     maxAge / time.Duration(ageBuckets),
	}
}

// rotate advances the head for every slice boundary passed since headStart.
// A clock that moves backwards never rotates.
func (w *slidingWindow) rotate(now time.Time) {
	elapsed := now.Sub(w.headStart)
	if elapsed < w.slice {
		return
	}
	steps := int(elapsed / w.slice)
	if steps >= len(w.buckets) {
		for i := range w.buckets {
			w.buckets[i].clear()
		}
		w.head = (w.head + steps) % len(w.buckets)
	} else {
		for i := 0; i < steps; i++ {
			w.head = (w.head + 1) % len(w.buckets)
			w.buckets[w.head].clear()
		}
	}
	w.headStart = w.headStart.Add(time.Duration(steps) * w.slice)
}

func (w *slidingWindow) insert(v float64, now time.Time) {
	w.rotate(now)
	b := &w.buckets[w.head]
	i := sort.SearchFloat64s(b.samples, v)
	b.samples = append(b.samples, 0)
	copy(b.samples[i+1:], b.samples[i:])
	b.samples[i] = v
	b.sum += v
	b.count++
}

func (w *slidingWindow) reset(now time.Time) {
	for i := range w.buckets {
		w.buckets[i].clear()
	}
	w.head = 0
	w.headStart = now
}

// totals returns sum and count across live buckets.
func (w *slidingWindow) totals() (sum float64, count uint64) {
	for i := range w.buckets {
		sum += w.buckets[i].sum
		count += w.buckets[i].count
	}
	return sum, count
}

// merged returns every live sample in ascending order.
func (w *slidingWindow) merged() []float64 {
	var out []float64
	for i := range w.buckets {
		if len(w.buckets[i].samples) == 0 {
			continue
		}
		out = mergeSorted(out, w.buckets[i].samples)
	}
	return out
}

func mergeSorted(a, b []float64) []float64 {
	out := make([]float64, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if b[j] < a[i] {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// quantileAt returns the sample at rank ceil(q*N)-1 of a sorted slice.
func quantileAt(sorted []float64, q float64) float64 {
	rank := int(math.Ceil(q*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
