package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/searcher/fusion"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit  int
	mode   string
	alpha  float64
	format string // "text", "json"
	record bool
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run one query against a freshly built index",
		Long: `Build the index from the corpus and answer a single query.

Examples:
  medsearch search fever headache
  medsearch search "paracetamo" --limit 5
  medsearch search "acid reflux" --mode hybrid --alpha 0.7 --format json
  medsearch search "skin rash" --record`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			alphaSet := cmd.Flags().Changed("alpha")
			return runSearch(cmd.Context(), cmd.OutOrStdout(), root, query, alphaSet, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "Fusion mode: fallback, hybrid (default from config)")
	cmd.Flags().Float64Var(&opts.alpha, "alpha", 0, "Semantic weight for hybrid mode, in [0,1]")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.record, "record", false, "Append the query and its results to the query log")

	return cmd
}

func runSearch(ctx context.Context, out io.Writer, root *rootOptions, query string, alphaSet bool, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q (expected text or json)", opts.format)
	}
	a, err := newApp(ctx, root.cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	req := fusion.Request{Query: query, Limit: opts.limit, Mode: fusion.Mode(opts.mode)}
	if alphaSet {
		req.Alpha = &opts.alpha
	}
	start := time.Now()
	resp, err := a.engine.Do(ctx, req)
	if err != nil {
		return err
	}
	took := time.Since(start)
	slog.Debug("search_completed", "query", query, "results", len(resp.Results), "provenance", resp.Provenance, "took", took)

	if opts.record {
		if err := recordQuery(ctx, root.cfg.Analytics.QueryLogPath, resp, took); err != nil {
			return err
		}
	}

	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printResults(out, resp, a.builder.Corpus())
	return nil
}

func recordQuery(ctx context.Context, path string, resp *fusion.Response, took time.Duration) error {
	sink, err := analytics.NewFileSink(path)
	if err != nil {
		return fmt.Errorf("opening query log: %w", err)
	}
	rec := analytics.NewRecord(resp, "", took, false)
	if err := sink.Write(ctx, []analytics.QueryLogRecord{rec}); err != nil {
		sink.Close()
		return fmt.Errorf("writing query log: %w", err)
	}
	return sink.Close()
}

func printResults(out io.Writer, resp *fusion.Response, c *corpus.Corpus) {
	header := fmt.Sprintf("%d results for %q", len(resp.Results), resp.Query)
	fmt.Fprintln(out, titleStyle.Render(header))
	meta := fmt.Sprintf("provenance=%s generation=%d", resp.Provenance, resp.IndexGen)
	fmt.Fprintln(out, dimStyle.Render(meta))
	if resp.CorrectedQuery != "" && resp.CorrectedQuery != resp.Query {
		fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("showing results for %q", resp.CorrectedQuery)))
	}
	if resp.Degraded {
		fmt.Fprintln(out, warnStyle.Render("semantic channel unavailable, results may be incomplete"))
	}
	fmt.Fprintln(out)

	for i, r := range resp.Results {
		name := fmt.Sprintf("doc %d", r.DocID)
		var uses string
		if c != nil {
			if d, ok := c.Get(r.DocID); ok {
				if d.Name != "" {
					name = d.Name
				}
				uses = d.Uses
			}
		}
		fmt.Fprintf(out, "%2d. %s %s\n", i+1, titleStyle.Render(name), dimStyle.Render(fmt.Sprintf("(id %d, score %.4f)", r.DocID, r.Score)))
		if uses != "" {
			fmt.Fprintf(out, "    uses: %s\n", uses)
		}
	}
}
