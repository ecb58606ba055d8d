package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/metricsd/metricsd/pkg/cliconfig"
	"github.com/metricsd/metricsd/pkg/logging"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	jsonOutput bool
}

// NewRootCommand builds the metricsd command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "metricsd",
		Short: "metricsd exposes application metrics in the Prometheus text format",
		Long: `metricsd keeps counters, gauges, histograms and sliding-window summaries
in memory and serves them over HTTP for Prometheus to scrape. It can watch a
directory tree and record file activity as metrics.

Configuration can be provided via flags, environment variables, or a configuration file.
By default, metricsd looks for .metricsd.yaml in the working directory and
config.yaml in the user config directory under metricsd/.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (default: .metricsd.yaml)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format (text, json)")
	cmd.PersistentFlags().BoolVar(&g.jsonOutput, "json", false, "Output command results in JSON format")

	cmd.AddCommand(
		newServeCmd(g),
		newScrapeCmd(g),
		newConfigCmd(g),
		newVersionCmd(g),
	)
	return cmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the layered configuration and applies persistent
// flags on top.
func (g *globalFlags) loadConfig(cmd *cobra.Command) (*cliconfig.Config, error) {
	cfg, err := cliconfig.LoadAll(g.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = g.logLevel
		cfg.Sources["logLevel"] = cliconfig.SourceFlag
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = g.logFormat
		cfg.Sources["logFormat"] = cliconfig.SourceFlag
	}
	return cfg, nil
}

// newLogger builds the process logger. When cfg.LogFile is set every record
// is mirrored there as JSON; the returned closer releases the file.
func newLogger(cfg *cliconfig.Config, stderr io.Writer) (*slog.Logger, func() error, error) {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(cfg.LogLevel)
	lc.Format = logging.ParseFormat(cfg.LogFormat)
	lc.Output = stderr

	closer := func() error { return nil }
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		lc.Mirror = f
		closer = f.Close
	}
	return logging.New(lc), closer, nil
}
