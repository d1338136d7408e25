package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/postgres"
)

type evaluateOptions struct {
	logPath string
	output  string
	k       int
	workers int
	format  string // "table", "json", "none"
	save    bool
}

func newEvaluateCmd(root *rootOptions) *cobra.Command {
	var opts evaluateOptions

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a query log with Precision@k, Recall@k, MRR and nDCG@k",
		Long: `Replay a JSONL query log against the corpus relevance judgements.

A result is relevant when one of the query's words appears in the
document's uses. Per-query scores are written as CSV and the mean is
printed as the final table row. Malformed log lines are skipped and counted.

Examples:
  medsearch evaluate
  medsearch evaluate --log search_logs.jsonl --k 5 --output results.csv
  medsearch evaluate --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvaluate(cmd.Context(), cmd.OutOrStdout(), root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.logPath, "log", "", "Query log to evaluate (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "CSV output path (default from config, \"-\" to skip)")
	cmd.Flags().IntVarP(&opts.k, "k", "k", 0, "Rank cut-off (default from config)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Concurrent evaluation workers (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "Output format: table, json, none")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Store the run in Postgres")

	return cmd
}

func runEvaluate(ctx context.Context, out io.Writer, root *rootOptions, opts evaluateOptions) error {
	cfg := root.cfg
	logPath := firstNonEmpty(opts.logPath, cfg.Analytics.QueryLogPath)
	output := firstNonEmpty(opts.output, cfg.Evaluation.OutputPath)
	k := cfg.Evaluation.K
	if opts.k > 0 {
		k = opts.k
	}
	workers := cfg.Evaluation.Workers
	if opts.workers > 0 {
		workers = opts.workers
	}
	switch opts.format {
	case "table", "json", "none":
	default:
		return fmt.Errorf("unknown format %q (expected table, json or none)", opts.format)
	}

	c, err := corpus.LoadCSV(cfg.Corpus)
	if err != nil {
		return err
	}
	records, skipped, err := evaluation.ReadQueryLogFile(logPath, c.Len())
	if err != nil {
		return err
	}
	if skipped > 0 {
		slog.Warn("skipped malformed query log lines", "path", logPath, "skipped", skipped)
	}

	ev := evaluation.New(c, k,
		evaluation.WithWorkers(workers),
		evaluation.WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	report, err := ev.Evaluate(ctx, records)
	if err != nil {
		return err
	}
	report.Skipped = skipped

	if output != "-" {
		if err := evaluation.WriteCSVFile(output, report); err != nil {
			return err
		}
		slog.Info("evaluation results written", "path", output, "queries", len(report.Queries))
	}

	switch opts.format {
	case "table":
		fmt.Fprintln(out, evaluation.RenderTable(report))
		if skipped > 0 {
			fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%d malformed log lines skipped", skipped)))
		}
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report.Mean()); err != nil {
			return err
		}
	}

	if opts.save {
		return saveRun(ctx, out, root, report)
	}
	return nil
}

func saveRun(ctx context.Context, out io.Writer, root *rootOptions, report *evaluation.Report) error {
	if !root.cfg.Postgres.Enabled {
		return fmt.Errorf("--save needs postgres.enabled in config")
	}
	pg, err := postgres.New(ctx, root.cfg.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()

	store := evaluation.NewStore(pg)
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	prev, err := store.LatestSummary(ctx)
	if err != nil {
		return err
	}
	id, err := store.SaveRun(ctx, report)
	if err != nil {
		return err
	}
	slog.Info("evaluation run saved", "run_id", id)
	if prev != nil {
		mean := report.Mean()
		fmt.Fprintf(out, "vs previous run: P %+.4f  R %+.4f  MRR %+.4f  nDCG %+.4f\n",
			mean.Precision-prev.Precision, mean.Recall-prev.Recall, mean.MRR-prev.MRR, mean.NDCG-prev.NDCG)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
