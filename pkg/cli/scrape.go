package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/metricsd/metricsd/pkg/cli/internal/output"
	"github.com/metricsd/metricsd/pkg/metrics"
)

// ScrapedFamily is one metric family in scrape output.
type ScrapedFamily struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Help   string `json:"help,omitempty"`
	Series int    `json:"series"`
}

func newScrapeCmd(g *globalFlags) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Fetch a metrics endpoint and summarize its families",
		Example: `  metricsd scrape http://127.0.0.1:9464/metrics
  metricsd scrape --json http://127.0.0.1:9464/metrics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			families, err := scrape(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if g.jsonOutput {
				return output.JSON(out, families)
			}
			tw := output.Table(out)
			fmt.Fprintln(tw, "NAME\tTYPE\tSERIES")
			for _, f := range families {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", f.Name, f.Type, f.Series)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	return cmd
}

// scrape fetches url and parses the exposition text it returns.
func scrape(ctx context.Context, url string) ([]ScrapedFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scrape %s: %w: %s", url, ErrUnexpectedStatus, resp.Status)
	}

	parsed, err := metrics.ParseText(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}

	families := make([]ScrapedFamily, 0, len(parsed))
	for _, mf := range parsed {
		families = append(families, ScrapedFamily{
			Name:   mf.GetName(),
			Type:   string(metrics.TypeOf(mf)),
			Help:   mf.GetHelp(),
			Series: len(mf.GetMetric()),
		})
	}
	return families, nil
}
