package cliconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variable names
const (
	EnvHost            = "METRICSD_HOST"
	EnvPort            = "METRICSD_PORT"
	EnvMetricsPath     = "METRICSD_METRICS_PATH"
	EnvHealthPath      = "METRICSD_HEALTH_PATH"
	EnvPrefix          = "METRICSD_PREFIX"
	EnvDefaultLabels   = "METRICSD_DEFAULT_LABELS"
	EnvWatchDir        = "METRICSD_WATCH_DIR"
	EnvExtensions      = "METRICSD_EXTENSIONS"
	EnvRuntimeSchedule = "METRICSD_RUNTIME_SCHEDULE"
	EnvLogLevel        = "METRICSD_LOG_LEVEL"
	EnvLogFormat       = "METRICSD_LOG_FORMAT"
	EnvConfig          = "METRICSD_CONFIG"
)

// LoadEnvConfig loads configuration from environment variables.
// It only sets values that are present in the environment; malformed
// numbers and label lists are ignored.
func LoadEnvConfig(cfg *Config) {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]string)
	}

	strVars := []struct {
		env, key string
		dst      *string
	}{
		{EnvHost, "host", &cfg.Host},
		{EnvMetricsPath, "metricsPath", &cfg.MetricsPath},
		{EnvHealthPath, "healthPath", &cfg.HealthPath},
		{EnvWatchDir, "watchDir", &cfg.WatchDir},
		{EnvRuntimeSchedule, "runtimeSchedule", &cfg.RuntimeSchedule},
		{EnvLogLevel, "logLevel", &cfg.LogLevel},
		{EnvLogFormat, "logFormat", &cfg.LogFormat},
	}
	for _, v := range strVars {
		if s := os.Getenv(v.env); s != "" {
			*v.dst = s
			cfg.Sources[v.key] = SourceEnv
		}
	}

	// METRICSD_PREFIX may be set to the empty string to disable the prefix.
	if v, ok := os.LookupEnv(EnvPrefix); ok {
		cfg.Prefix = v
		cfg.Sources["prefix"] = SourceEnv
	}

	if v := os.Getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
			cfg.Sources["port"] = SourceEnv
		}
	}

	if v := os.Getenv(EnvDefaultLabels); v != "" {
		if labels, err := ParseLabelPairs(v); err == nil {
			cfg.DefaultLabels = labels
			cfg.Sources["defaultLabels"] = SourceEnv
		}
	}

	if v := os.Getenv(EnvExtensions); v != "" {
		cfg.Extensions = splitList(v)
		cfg.Sources["extensions"] = SourceEnv
	}
}

// ParseLabelPairs parses "k=v,k=v" into a label map.
func ParseLabelPairs(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range splitList(s) {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid label pair %q, expected key=value", pair)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
