package cliconfig

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/metricsd/metricsd/pkg/metrics"
)

// Validate checks the configuration for values the server cannot start with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range (1-65535)", c.Port)
	}
	if !strings.HasPrefix(c.MetricsPath, "/") {
		return fmt.Errorf("metricsPath %q must start with /", c.MetricsPath)
	}
	if !strings.HasPrefix(c.HealthPath, "/") {
		return fmt.Errorf("healthPath %q must start with /", c.HealthPath)
	}
	if c.MetricsPath == c.HealthPath {
		return fmt.Errorf("metricsPath and healthPath must differ, both are %q", c.MetricsPath)
	}
	if err := metrics.ValidateDefaultLabels(c.DefaultLabels); err != nil {
		return fmt.Errorf("defaultLabels: %w", err)
	}
	if c.RuntimeSchedule != "" {
		if _, err := cron.ParseStandard(c.RuntimeSchedule); err != nil {
			return fmt.Errorf("runtimeSchedule %q is invalid: %w", c.RuntimeSchedule, err)
		}
	}
	return nil
}

// NormalizedExtensions returns the watched extensions lowercased with a
// leading dot.
func (c *Config) NormalizedExtensions() []string {
	out := make([]string, 0, len(c.Extensions))
	for _, ext := range c.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
