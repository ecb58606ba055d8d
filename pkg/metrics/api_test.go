package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIConstructors(t *testing.T) {
	t.Parallel()

	api := NewAPI(NewRegistry(WithPrefix("obsidian_")))

	c, err := api.Counter("notes_created_total", "Notes created", "folder")
	require.NoError(t, err)
	assert.Equal(t, MetricTypeCounter, c.Type())
	assert.Equal(t, []string{"folder"}, c.LabelNames())

	g, err := api.Gauge("open_tabs", "Open tabs")
	require.NoError(t, err)
	assert.Equal(t, MetricTypeGauge, g.Type())

	h, err := api.Histogram("render_seconds", "Render time", []float64{0.1, 1})
	require.NoError(t, err)
	assert.Equal(t, MetricTypeHistogram, h.Type())

	s, err := api.Summary("view_seconds", "View time", nil)
	require.NoError(t, err)
	assert.Equal(t, MetricTypeSummary, s.Type())

	got, ok := api.Get("open_tabs")
	require.True(t, ok)
	assert.Same(t, g, got)
	got, ok = api.Get("obsidian_open_tabs")
	require.True(t, ok)
	assert.Same(t, g, got)

	assert.Contains(t, api.Render(), "# TYPE obsidian_view_seconds summary")

	assert.True(t, api.Clear("open_tabs"))
	_, ok = api.Get("open_tabs")
	assert.False(t, ok)

	api.ClearAll()
	assert.Empty(t, api.Render())
	assert.Empty(t, api.Registry().Families())
}

func TestAPITime(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	api := NewAPI(NewRegistry(WithClock(clock.Now)))

	_, err := api.Time("missing", nil)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = api.Gauge("g", "g")
	require.NoError(t, err)
	_, err = api.Time("g", nil)
	require.ErrorIs(t, err, ErrUnsupportedOperation)

	_, err = api.Summary("load_seconds", "Load", []float64{0.5}, "kind")
	require.NoError(t, err)
	_, err = api.Time("load_seconds", nil)
	require.ErrorIs(t, err, ErrLabelMismatch)

	stop, err := api.Time("load_seconds", Labels{"kind": "vault"})
	require.NoError(t, err)
	clock.Advance(2 * time.Second)
	assert.Equal(t, 2.0, stop())

	q, err := mustGet(t, api, "load_seconds").Quantiles(Labels{"kind": "vault"})
	require.NoError(t, err)
	assert.Equal(t, []Quantile{{Quantile: 0.5, Value: 2}}, q)
}

func mustGet(t *testing.T, api *API, name string) *Handle {
	t.Helper()
	h, ok := api.Get(name)
	require.True(t, ok, name)
	return h
}

func TestAPIMeasure(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock.Now))
	api := NewAPI(reg)

	errBoom := errors.New("boom")
	err := api.Measure("sync_seconds", Labels{"target": "git", "mode": "full"}, func() error {
		clock.Advance(3 * time.Second)
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	h := mustGet(t, api, "sync_seconds")
	assert.Equal(t, MetricTypeHistogram, h.Type())
	assert.Equal(t, []string{"mode", "target"}, h.LabelNames())

	s := sampleOf(t, reg, "sync_seconds", Labels{"target": "git", "mode": "full"})
	assert.Equal(t, uint64(1), s.Count)
	assert.Equal(t, 3.0, s.Sum)
	assert.Len(t, s.Buckets, len(DefaultBuckets)+1)

	require.NoError(t, api.Measure("sync_seconds", Labels{"target": "s3", "mode": "delta"}, func() error { return nil }))
	f, _ := findFamily(reg, "sync_seconds")
	assert.Len(t, f.Samples, 2)
}

func TestAPIMeasureInstrumentFailure(t *testing.T) {
	t.Parallel()

	api := NewAPI(NewRegistry())
	_, err := api.Gauge("busy", "Busy")
	require.NoError(t, err)

	ran := false
	err = api.Measure("busy", nil, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 0.0, sampleOf(t, api.Registry(), "busy", nil).Value)

	ran = false
	require.NoError(t, api.Measure("bad-name", nil, func() error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}

func TestAPIMeasureContext(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	api := NewAPI(NewRegistry(WithClock(clock.Now)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := api.MeasureContext(ctx, "reindex_seconds", nil, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	_, ok := api.Get("reindex_seconds")
	assert.False(t, ok)

	err = api.MeasureContext(context.Background(), "reindex_seconds", nil, func(ctx context.Context) error {
		require.NoError(t, ctx.Err())
		clock.Advance(500 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	s := sampleOf(t, api.Registry(), "reindex_seconds", nil)
	assert.Equal(t, uint64(1), s.Count)
	assert.Equal(t, 0.5, s.Sum)
}
