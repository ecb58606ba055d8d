package cliconfig

// DefaultHost is the default listen address.
const DefaultHost = "127.0.0.1"

// DefaultPort is the default HTTP port for scrapes.
const DefaultPort = 9464

// DefaultMetricsPath is the default exposition path.
const DefaultMetricsPath = "/metrics"

// DefaultHealthPath is the default health-check path.
const DefaultHealthPath = "/health"

// DefaultPrefix is prepended to every metric name.
const DefaultPrefix = "obsidian_"

// DefaultRuntimeSchedule refreshes runtime gauges every 15 seconds.
const DefaultRuntimeSchedule = "@every 15s"

// DefaultExtensions are the file extensions watched by default.
var DefaultExtensions = []string{".md"}

// NewDefault creates a new Config with default values.
func NewDefault() *Config {
	cfg := &Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		MetricsPath:     DefaultMetricsPath,
		HealthPath:      DefaultHealthPath,
		Prefix:          DefaultPrefix,
		Extensions:      append([]string(nil), DefaultExtensions...),
		SkipHidden:      true,
		RuntimeSchedule: DefaultRuntimeSchedule,
		LogLevel:        "info",
		LogFormat:       "text",
		Sources:         make(map[string]string),
	}

	for _, key := range []string{
		"host", "port", "metricsPath", "healthPath", "prefix", "extensions",
		"skipHidden", "runtimeSchedule", "logLevel", "logFormat",
	} {
		cfg.Sources[key] = SourceDefault
	}

	return cfg
}
