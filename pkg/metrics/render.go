package metrics

import (
	"bytes"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ContentType is the media type of the text exposition format.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

// Render returns the registry in the Prometheus text exposition format.
// An empty registry renders as the empty string.
func (r *Registry) Render() string {
	var buf bytes.Buffer
	r.render(&buf)
	return buf.String()
}

// WriteTo writes the text exposition to w.
func (r *Registry) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	r.render(&buf)
	return buf.WriteTo(w)
}

func (r *Registry) render(buf *bytes.Buffer) {
	for _, f := range r.Families() {
		writeFamily(buf, f, r.defaultLabels)
	}
}

// writeFamily writes the HELP and TYPE lines followed by one line per sample.
func writeFamily(buf *bytes.Buffer, f Family, defaults Labels) {
	buf.WriteString("# HELP ")
	buf.WriteString(f.Name)
	buf.WriteByte(' ')
	buf.WriteString(escapeHelp(f.Help))
	buf.WriteByte('\n')

	buf.WriteString("# TYPE ")
	buf.WriteString(f.Name)
	buf.WriteByte(' ')
	buf.WriteString(string(f.Type))
	buf.WriteByte('\n')

	for _, s := range f.Samples {
		labels := mergeLabels(defaults, s.Labels)
		switch f.Type {
		case MetricTypeCounter, MetricTypeGauge:
			writeSample(buf, f.Name, labels, "", "", s.Value)
		case MetricTypeHistogram:
			for _, b := range s.Buckets {
				writeSample(buf, f.Name+"_bucket", labels, "le", FormatFloat(b.UpperBound), float64(b.Count))
			}
			writeSample(buf, f.Name+"_sum", labels, "", "", s.Sum)
			writeSample(buf, f.Name+"_count", labels, "", "", float64(s.Count))
		case MetricTypeSummary:
			for _, q := range s.Quantiles {
				writeSample(buf, f.Name, labels, "quantile", FormatFloat(q.Quantile), q.Value)
			}
			writeSample(buf, f.Name+"_sum", labels, "", "", s.Sum)
			writeSample(buf, f.Name+"_count", labels, "", "", float64(s.Count))
		}
	}
}

// renderLabel is one label pair in output order.
type renderLabel struct {
	name, value string
}

// mergeLabels merges defaults with a series' labels, sorted by name.
// Series labels win over defaults.
func mergeLabels(defaults, own Labels) []renderLabel {
	if len(defaults) == 0 && len(own) == 0 {
		return nil
	}
	merged := make(map[string]string, len(defaults)+len(own))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range own {
		merged[k] = v
	}
	out := make([]renderLabel, 0, len(merged))
	for k, v := range merged {
		out = append(out, renderLabel{name: k, value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// writeSample writes one sample line. extraName/extraValue append an le or
// quantile label after the series labels. Braces are omitted when there are
// no labels at all.
func writeSample(buf *bytes.Buffer, name string, labels []renderLabel, extraName, extraValue string, value float64) {
	buf.WriteString(name)
	if len(labels) > 0 || extraName != "" {
		buf.WriteByte('{')
		for i, l := range labels {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeLabel(buf, l.name, l.value)
		}
		if extraName != "" {
			if len(labels) > 0 {
				buf.WriteByte(',')
			}
			writeLabel(buf, extraName, extraValue)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(' ')
	buf.WriteString(FormatFloat(value))
	buf.WriteByte('\n')
}

func writeLabel(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(`="`)
	buf.WriteString(escapeLabelValue(value))
	buf.WriteByte('"')
}

// FormatFloat formats a value so that parsing it back yields the same float64.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

var (
	helpEscaper  = strings.NewReplacer(`\`, `\\`, "\n", `\n`)
	labelEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)
)

// escapeHelp escapes help text for Prometheus format.
func escapeHelp(s string) string { return helpEscaper.Replace(s) }

// escapeLabelValue escapes label values for Prometheus format.
func escapeLabelValue(s string) string { return labelEscaper.Replace(s) }
