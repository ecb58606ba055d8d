package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/metricsd/metricsd/pkg/cli/internal/output"
)

// ConfigSourceEntry reports where one config key was resolved from.
type ConfigSourceEntry struct {
	Key    string `json:"key"`
	Source string `json:"source"`
}

func newConfigCmd(g *globalFlags) *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show effective configuration",
		Long: `Show the configuration metricsd would run with after merging defaults,
the global and local config files, METRICSD_* environment variables and flags.

The configuration is validated after printing; invalid settings make the
command fail.`,
		Example: `  metricsd config
  metricsd config --sources
  metricsd config --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if showSources {
				keys := make([]string, 0, len(cfg.Sources))
				for k := range cfg.Sources {
					keys = append(keys, k)
				}
				sort.Strings(keys)

				if g.jsonOutput {
					entries := make([]ConfigSourceEntry, 0, len(keys))
					for _, k := range keys {
						entries = append(entries, ConfigSourceEntry{Key: k, Source: cfg.Sources[k]})
					}
					if err := output.JSON(out, entries); err != nil {
						return err
					}
				} else {
					tw := output.Table(out)
					fmt.Fprintln(tw, "KEY\tSOURCE")
					for _, k := range keys {
						fmt.Fprintf(tw, "%s\t%s\n", k, cfg.Sources[k])
					}
					if err := tw.Flush(); err != nil {
						return err
					}
				}
				if cfg.ConfigFile != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "config file: %s\n", cfg.ConfigFile)
				}
				return cfg.Validate()
			}

			if g.jsonOutput {
				if err := output.JSON(out, cfg); err != nil {
					return err
				}
				return cfg.Validate()
			}

			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			if err := enc.Close(); err != nil {
				return err
			}
			return cfg.Validate()
		},
	}

	cmd.Flags().BoolVar(&showSources, "sources", false, "Show where each value came from")
	return cmd
}
