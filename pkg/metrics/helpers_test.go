package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// findFamily returns the snapshot of one family by full name.
func findFamily(r *Registry, name string) (Family, bool) {
	for _, f := range r.Families() {
		if f.Name == name {
			return f, true
		}
	}
	return Family{}, false
}

// sampleOf returns one series of a family, failing the test if it is absent.
func sampleOf(t *testing.T, r *Registry, name string, labels Labels) Sample {
	t.Helper()
	f, ok := findFamily(r, name)
	require.True(t, ok, "family %s not found", name)
	key := CanonicalKey(labels)
	for _, s := range f.Samples {
		if CanonicalKey(s.Labels) == key {
			return s
		}
	}
	require.Failf(t, "series not found", "%s{%s}", name, key)
	return Sample{}
}

func with(t *testing.T, h *Handle, labels Labels) *Series {
	t.Helper()
	s, err := h.With(labels)
	require.NoError(t, err)
	return s
}
