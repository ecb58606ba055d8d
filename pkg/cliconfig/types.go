// Package cliconfig provides configuration types and loading for metricsd.
package cliconfig

// Config represents the complete configuration for metricsd.
// Configuration values can come from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Local config file (.metricsd.yaml in current directory, or --config)
// 4. Global config file (~/.config/metricsd/config.yaml)
// 5. Default values (lowest priority)
type Config struct {
	// Server settings
	Host        string `yaml:"host" json:"host"`
	Port        int    `yaml:"port" json:"port"`
	MetricsPath string `yaml:"metricsPath" json:"metricsPath"`
	HealthPath  string `yaml:"healthPath" json:"healthPath"`

	// Registry settings
	Prefix        string            `yaml:"prefix" json:"prefix"`
	DefaultLabels map[string]string `yaml:"defaultLabels,omitempty" json:"defaultLabels,omitempty"`

	// Host event source settings
	WatchDir   string   `yaml:"watchDir,omitempty" json:"watchDir,omitempty"`
	Extensions []string `yaml:"extensions,omitempty" json:"extensions,omitempty"`
	SkipHidden bool     `yaml:"skipHidden" json:"skipHidden"`

	// RuntimeSchedule is the cron schedule for Go runtime gauges.
	RuntimeSchedule string `yaml:"runtimeSchedule" json:"runtimeSchedule"`

	// Logging settings
	LogLevel  string `yaml:"logLevel" json:"logLevel"`
	LogFormat string `yaml:"logFormat" json:"logFormat"`
	LogFile   string `yaml:"logFile,omitempty" json:"logFile,omitempty"`

	// ConfigFile is the explicit config path, if any.
	ConfigFile string `yaml:"-" json:"configFile,omitempty"`

	// Sources tracks where each value came from (for debugging)
	Sources map[string]string `yaml:"-" json:"-"`

	// SetFields records which keys were present in a loaded file, so that
	// explicit zero values (prefix: "", skipHidden: false) still override.
	SetFields map[string]bool `yaml:"-" json:"-"`
}

// ConfigSource identifies where a config value originated.
const (
	SourceDefault = "default"
	SourceEnv     = "env"
	SourceGlobal  = "global"
	SourceLocal   = "local"
	SourceFlag    = "flag"
)
