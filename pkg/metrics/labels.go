package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
)

// Labels is a label name to value assignment for one series.
type Labels map[string]string

var (
	metricNameRE = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)
	labelNameRE  = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// CanonicalKey returns the lookup key for an assignment.
// Pairs are sorted by name, so two assignments with equal pairs share a key
// regardless of how they were built. '=', ',' and '\' in values are escaped.
func CanonicalKey(labels Labels) string {
	if len(labels) == 0 {
		return ""
	}
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name)
		b.WriteByte('=')
		escapeKeyValue(&b, labels[name])
	}
	return b.String()
}

func escapeKeyValue(b *strings.Builder, v string) {
	for i := 0; i < len(v); i++ {
		switch c := v[i]; c {
		case '\\', '=', ',':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
}

// ValidateLabels checks that the assignment names exactly the declared label names.
func ValidateLabels(declared []string, labels Labels) error {
	if len(labels) != len(declared) {
		return fmt.Errorf("%w: expected %d labels %v, got %d", ErrLabelMismatch, len(declared), declared, len(labels))
	}
	for _, name := range declared {
		if _, ok := labels[name]; !ok {
			return fmt.Errorf("%w: missing label %q (declared %v)", ErrLabelMismatch, name, declared)
		}
	}
	return nil
}

// copyLabels detaches an assignment from the caller's map.
func copyLabels(labels Labels) Labels {
	if len(labels) == 0 {
		return nil
	}
	out := make(Labels, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

func validateMetricName(name string) error {
	if !metricNameRE.MatchString(name) {
		return fmt.Errorf("%w: invalid metric name %q", ErrInvalidOptions, name)
	}
	return nil
}

// validateLabelNames checks grammar, duplicates and names reserved by the kind.
func validateLabelNames(kind MetricType, names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if !labelNameRE.MatchString(name) || strings.HasPrefix(name, "__") {
			return fmt.Errorf("%w: invalid label name %q", ErrInvalidOptions, name)
		}
		if (kind == MetricTypeHistogram && name == "le") || (kind == MetricTypeSummary && name == "quantile") {
			return fmt.Errorf("%w: label name %q is reserved for %s", ErrInvalidOptions, name, kind)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate label name %q", ErrInvalidOptions, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// ValidateDefaultLabels checks label names meant to be merged into every
// series. Besides the usual grammar, "le" and "quantile" are rejected since
// histogram and summary lines already carry them.
func ValidateDefaultLabels(labels Labels) error {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := validateDefaultLabelName(name); err != nil {
			return err
		}
	}
	return nil
}

func validateDefaultLabelName(name string) error {
	if !labelNameRE.MatchString(name) || strings.HasPrefix(name, "__") {
		return fmt.Errorf("%w: invalid label name %q", ErrInvalidOptions, name)
	}
	if name == "le" || name == "quantile" {
		return fmt.Errorf("%w: label name %q is reserved and cannot be a default label", ErrInvalidOptions, name)
	}
	return nil
}

// sameLabelNames reports whether two declarations name the same set.
func sameLabelNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	sort.Strings(x)
	sort.Strings(y)
	return slices.Equal(x, y)
}
