package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/metricsd/metricsd/pkg/cliconfig"
	"github.com/metricsd/metricsd/pkg/metrics"
	"github.com/metricsd/metricsd/pkg/server"
	"github.com/metricsd/metricsd/pkg/vault"
)

type serveFlags struct {
	host     string
	port     int
	prefix   string
	watchDir string
}

func newServeCmd(g *globalFlags) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the metrics exporter",
		Long: `Run the metrics exporter until interrupted.

The exporter registers the built-in metric set, refreshes Go runtime gauges on
a cron schedule, optionally watches a directory tree for file activity, and
serves the exposition text and a JSON health document over HTTP.`,
		Example: `  # Serve on the default address
  metricsd serve

  # Watch an Obsidian vault and serve on all interfaces
  metricsd serve --watch ~/Notes --host 0.0.0.0 --port 9464`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&f.host, "host", "", "Address to bind (default: 127.0.0.1)")
	cmd.Flags().IntVarP(&f.port, "port", "p", 0, "Port to listen on (default: 9464)")
	cmd.Flags().StringVar(&f.prefix, "prefix", "", "Prefix applied to every metric name")
	cmd.Flags().StringVarP(&f.watchDir, "watch", "w", "", "Directory tree to record file activity from")
	return cmd
}

// apply layers changed serve flags over cfg.
func (f *serveFlags) apply(cmd *cobra.Command, cfg *cliconfig.Config) {
	set := func(flag, key string, fn func()) {
		if cmd.Flags().Changed(flag) {
			fn()
			cfg.Sources[key] = cliconfig.SourceFlag
		}
	}
	set("host", "host", func() { cfg.Host = f.host })
	set("port", "port", func() { cfg.Port = f.port })
	set("prefix", "prefix", func() { cfg.Prefix = f.prefix })
	set("watch", "watchDir", func() { cfg.WatchDir = f.watchDir })
}

// runServe wires the registry, runtime collector, watcher and HTTP server
// and runs them until ctx is cancelled or one of them fails.
func runServe(ctx context.Context, cmd *cobra.Command, cfg *cliconfig.Config) error {
	logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	reg := metrics.NewRegistry(
		metrics.WithPrefix(cfg.Prefix),
		metrics.WithDefaultLabels(cfg.DefaultLabels),
		metrics.WithLogger(logger),
	)
	builtins, err := metrics.RegisterBuiltins(reg, Version)
	if err != nil {
		return fmt.Errorf("register built-in metrics: %w", err)
	}

	collector, err := metrics.NewRuntimeCollector(reg, builtins.Uptime, logger)
	if err != nil {
		return fmt.Errorf("register runtime metrics: %w", err)
	}
	if cfg.RuntimeSchedule == "" {
		collector.Collect()
	} else {
		stopCollector, err := collector.Start(cfg.RuntimeSchedule)
		if err != nil {
			return err
		}
		defer stopCollector()
	}

	srv, err := server.New(server.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		MetricsPath: cfg.MetricsPath,
		HealthPath:  cfg.HealthPath,
	}, reg, logger)
	if err != nil {
		return err
	}

	var watcher *vault.Watcher
	if cfg.WatchDir != "" {
		watcher, err = vault.NewWatcher(vault.WatcherConfig{
			Root:       cfg.WatchDir,
			Extensions: cfg.NormalizedExtensions(),
			SkipHidden: cfg.SkipHidden,
		}, vault.NewRecorder(builtins, logger), logger)
		if err != nil {
			return err
		}
	} else {
		logger.Info("no watch directory configured; file metrics stay empty")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}

	logger.Info("metricsd started",
		"version", Version,
		"addr", srv.Addr(),
		"prefix", cfg.Prefix,
		"instance_id", srv.InstanceID(),
	)
	return g.Wait()
}
