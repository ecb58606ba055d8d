package metrics

import (
	"bytes"
	"math"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEmpty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", NewRegistry().Render())
}

func TestRenderCounterAndGauge(t *testing.T) {
	t.Parallel()

	r := NewRegistry(WithDefaultLabels(Labels{"env": "prod"}))
	c, err := r.CreateCounter(Opts{Name: "requests_total", Help: "Total requests", LabelNames: []string{"method"}})
	require.NoError(t, err)
	require.NoError(t, with(t, c, Labels{"method": "GET"}).Add(2))
	g, err := r.CreateGauge(Opts{Name: "temp", Help: "Temperature"})
	require.NoError(t, err)
	require.NoError(t, g.Set(-1.5))

	want := `# HELP requests_total Total requests
# TYPE requests_total counter
requests_total{env="prod",method="GET"} 2
# HELP temp Temperature
# TYPE temp gauge
temp{env="prod"} -1.5
`
	assert.Equal(t, want, r.Render())
}

func TestRenderSeriesLabelsOverrideDefaults(t *testing.T) {
	t.Parallel()

	r := NewRegistry(WithDefaultLabels(Labels{"env": "prod", "app": "vault"}))
	c, err := r.CreateCounter(Opts{Name: "c", Help: "c", LabelNames: []string{"env"}})
	require.NoError(t, err)
	require.NoError(t, with(t, c, Labels{"env": "dev"}).Inc())

	assert.Contains(t, r.Render(), `c{app="vault",env="dev"} 1`)
	assert.Equal(t, Labels{"env": "prod", "app": "vault"}, r.DefaultLabels())
}

func TestRenderHistogram(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	h, err := r.CreateHistogram(HistogramOpts{Opts: Opts{Name: "latency", Help: "Latency"}, Buckets: []float64{1, 5, 10}})
	require.NoError(t, err)
	for _, v := range []float64{0.5, 3, 7, 20} {
		require.NoError(t, h.Observe(v))
	}

	want := `# HELP latency Latency
# TYPE latency histogram
latency_bucket{le="1"} 1
latency_bucket{le="5"} 2
latency_bucket{le="10"} 3
latency_bucket{le="+Inf"} 4
latency_sum 30.5
latency_count 4
`
	assert.Equal(t, want, r.Render())
}

func TestRenderDropsInvalidDefaultLabels(t *testing.T) {
	t.Parallel()

	r := NewRegistry(WithDefaultLabels(Labels{
		"env":      "prod",
		"le":       "x",
		"quantile": "q",
		"bad-name": "v",
		"__meta":   "m",
	}))
	assert.Equal(t, Labels{"env": "prod"}, r.DefaultLabels())

	h, err := r.CreateHistogram(HistogramOpts{Opts: Opts{Name: "h", Help: "H"}, Buckets: []float64{1}})
	require.NoError(t, err)
	require.NoError(t, h.Observe(0.5))
	s, err := r.CreateSummary(SummaryOpts{Opts: Opts{Name: "s", Help: "S"}, Percentiles: []float64{0.5}})
	require.NoError(t, err)
	require.NoError(t, s.Observe(2))

	out := r.Render()
	assert.Contains(t, out, "h_bucket{env=\"prod\",le=\"1\"} 1\n")
	assert.Contains(t, out, "s{env=\"prod\",quantile=\"0.5\"} 2\n")

	families, err := ParseText(strings.NewReader(out))
	require.NoError(t, err)
	assert.Len(t, families, 2)
}

func TestRenderWithoutValidDefaultLabels(t *testing.T) {
	t.Parallel()

	r := NewRegistry(WithDefaultLabels(Labels{"le": "x"}))
	assert.Nil(t, r.DefaultLabels())

	g, err := r.CreateGauge(Opts{Name: "g", Help: "G"})
	require.NoError(t, err)
	require.NoError(t, g.Set(1))
	assert.Equal(t, "# HELP g G\n# TYPE g gauge\ng 1\n", r.Render())
}

func TestRenderLabeledHistogramAndSummary(t *testing.T) {
	t.Parallel()

	r := NewRegistry(WithClock(newFakeClock().Now))
	h, err := r.CreateHistogram(HistogramOpts{
		Opts:    Opts{Name: "size", Help: "Size", LabelNames: []string{"ext"}},
		Buckets: []float64{0.25},
	})
	require.NoError(t, err)
	require.NoError(t, with(t, h, Labels{"ext": "md"}).Observe(0.1))

	s, err := r.CreateSummary(SummaryOpts{
		Opts:        Opts{Name: "gap", Help: "Gap", LabelNames: []string{"ext"}},
		Percentiles: []float64{0.5, 0.99},
	})
	require.NoError(t, err)
	require.NoError(t, with(t, s, Labels{"ext": "md"}).Observe(3))

	want := `# HELP size Size
# TYPE size histogram
size_bucket{ext="md",le="0.25"} 1
size_bucket{ext="md",le="+Inf"} 1
size_sum{ext="md"} 0.1
size_count{ext="md"} 1
# HELP gap Gap
# TYPE gap summary
gap{ext="md",quantile="0.5"} 3
gap{ext="md",quantile="0.99"} 3
gap_sum{ext="md"} 3
gap_count{ext="md"} 1
`
	assert.Equal(t, want, r.Render())
}

func TestRenderLabeledFamilyWithoutSeries(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.CreateCounter(Opts{Name: "ops", Help: "Ops", LabelNames: []string{"op"}})
	require.NoError(t, err)

	assert.Equal(t, "# HELP ops Ops\n# TYPE ops counter\n", r.Render())
}

func TestRenderUnlabeledStartsAtZero(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.CreateCounter(Opts{Name: "ops", Help: "Ops"})
	require.NoError(t, err)

	assert.Equal(t, "# HELP ops Ops\n# TYPE ops counter\nops 0\n", r.Render())
}

func TestRenderSeriesSortedByLabels(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	c, err := r.CreateCounter(Opts{Name: "ops", Help: "Ops", LabelNames: []string{"op"}})
	require.NoError(t, err)
	for _, op := range []string{"rename", "create", "modify"} {
		require.NoError(t, with(t, c, Labels{"op": op}).Inc())
	}

	body := r.Render()
	iCreate := strings.Index(body, `op="create"`)
	iModify := strings.Index(body, `op="modify"`)
	iRename := strings.Index(body, `op="rename"`)
	assert.True(t, iCreate < iModify && iModify < iRename, body)
}

func TestRenderEscaping(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	c, err := r.CreateCounter(Opts{Name: "paths", Help: "Paths with \\ and\nnewlines", LabelNames: []string{"path"}})
	require.NoError(t, err)
	require.NoError(t, with(t, c, Labels{"path": "C:\\notes\\\"daily\"\nmd"}).Inc())

	body := r.Render()
	assert.Contains(t, body, "# HELP paths Paths with \\\\ and\\nnewlines\n")
	assert.Contains(t, body, `paths{path="C:\\notes\\\"daily\"\nmd"} 1`)
}

func TestFormatFloat(t *testing.T) {
	t.Parallel()

	tests := map[float64]string{
		0:            "0",
		2:            "2",
		-1.5:         "-1.5",
		0.1:          "0.1",
		1e-7:         "1e-07",
		1e21:         "1e+21",
		123456789.25: "1.2345678925e+08",
		math.Inf(1):  "+Inf",
		math.Inf(-1): "-Inf",
	}
	for v, want := range tests {
		assert.Equal(t, want, FormatFloat(v))
	}
	assert.Equal(t, "NaN", FormatFloat(math.NaN()))
}

func TestWriteTo(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	g, err := r.CreateGauge(Opts{Name: "g", Help: "g"})
	require.NoError(t, err)
	require.NoError(t, g.Set(3))

	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, r.Render(), buf.String())
}

func labelsOf(m *dto.Metric) Labels {
	out := Labels{}
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	tricky := "a \"quoted\" \\ path\nwith, = signs"
	r := NewRegistry(WithPrefix("rt_"), WithDefaultLabels(Labels{"env": "test"}), WithClock(newFakeClock().Now))

	c, err := r.CreateCounter(Opts{Name: "ops_total", Help: "Ops \\ total\nsecond line", LabelNames: []string{"path"}})
	require.NoError(t, err)
	require.NoError(t, with(t, c, Labels{"path": tricky}).Add(0.1))

	g, err := r.CreateGauge(Opts{Name: "ratio", Help: "Ratio"})
	require.NoError(t, err)
	require.NoError(t, g.Set(1.0/3))

	h, err := r.CreateHistogram(HistogramOpts{Opts: Opts{Name: "lat", Help: "Latency"}, Buckets: []float64{1, 5, 10}})
	require.NoError(t, err)
	for _, v := range []float64{0.5, 3, 7, 20} {
		require.NoError(t, h.Observe(v))
	}

	s, err := r.CreateSummary(SummaryOpts{Opts: Opts{Name: "sz", Help: "Size"}, Percentiles: []float64{0.5, 0.9}})
	require.NoError(t, err)
	for i := 1; i <= 10; i++ {
		require.NoError(t, s.Observe(float64(i)))
	}

	families, err := ParseText(strings.NewReader(r.Render()))
	require.NoError(t, err)
	require.Len(t, families, 4)

	byName := map[string]*dto.MetricFamily{}
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	counter := byName["rt_ops_total"]
	require.NotNil(t, counter)
	assert.Equal(t, MetricTypeCounter, TypeOf(counter))
	assert.Equal(t, "Ops \\ total\nsecond line", counter.GetHelp())
	require.Len(t, counter.GetMetric(), 1)
	assert.Equal(t, Labels{"env": "test", "path": tricky}, labelsOf(counter.GetMetric()[0]))
	assert.Equal(t, 0.1, counter.GetMetric()[0].GetCounter().GetValue())

	gauge := byName["rt_ratio"]
	require.NotNil(t, gauge)
	assert.Equal(t, MetricTypeGauge, TypeOf(gauge))
	assert.Equal(t, 1.0/3, gauge.GetMetric()[0].GetGauge().GetValue())

	hist := byName["rt_lat"]
	require.NotNil(t, hist)
	assert.Equal(t, MetricTypeHistogram, TypeOf(hist))
	hm := hist.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(4), hm.GetSampleCount())
	assert.Equal(t, 30.5, hm.GetSampleSum())
	buckets := hm.GetBucket()
	require.GreaterOrEqual(t, len(buckets), 3)
	assert.Equal(t, 1.0, buckets[0].GetUpperBound())
	assert.Equal(t, uint64(1), buckets[0].GetCumulativeCount())
	assert.Equal(t, uint64(2), buckets[1].GetCumulativeCount())
	assert.Equal(t, uint64(3), buckets[2].GetCumulativeCount())

	sum := byName["rt_sz"]
	require.NotNil(t, sum)
	assert.Equal(t, MetricTypeSummary, TypeOf(sum))
	sm := sum.GetMetric()[0].GetSummary()
	assert.Equal(t, uint64(10), sm.GetSampleCount())
	assert.Equal(t, 55.0, sm.GetSampleSum())
	require.Len(t, sm.GetQuantile(), 2)
	assert.Equal(t, 0.5, sm.GetQuantile()[0].GetQuantile())
	assert.Equal(t, 5.0, sm.GetQuantile()[0].GetValue())
	assert.Equal(t, 9.0, sm.GetQuantile()[1].GetValue())
}

func TestParseTextRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := ParseText(strings.NewReader("# TYPE x counter\nx{broken 1\n"))
	require.Error(t, err)
}
