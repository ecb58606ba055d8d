package metrics

import (
	"fmt"
	"io"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
)

// ParseText parses text exposition, as produced by Render, into metric
// families sorted by name.
func ParseText(r io.Reader) ([]*dto.MetricFamily, error) {
	parser := expfmt.NewTextParser(model.UTF8Validation)
	byName, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, fmt.Errorf("parse exposition: %w", err)
	}
	out := make([]*dto.MetricFamily, 0, len(byName))
	for _, mf := range byName {
		out = append(out, mf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out, nil
}

// TypeOf maps a parsed family type onto a MetricType.
// Untyped and unknown types map to the empty string.
func TypeOf(mf *dto.MetricFamily) MetricType {
	switch mf.GetType() {
	case dto.MetricType_COUNTER:
		return MetricTypeCounter
	case dto.MetricType_GAUGE:
		return MetricTypeGauge
	case dto.MetricType_HISTOGRAM:
		return MetricTypeHistogram
	case dto.MetricType_SUMMARY:
		return MetricTypeSummary
	default:
		return ""
	}
}
