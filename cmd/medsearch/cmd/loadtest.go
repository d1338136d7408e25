package cmd

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/loadtest"
)

type loadtestOptions struct {
	target      string
	concurrency int
	duration    time.Duration
	limit       int
	mode        string
	fromLog     string
}

func newLoadtestCmd(_ *rootOptions) *cobra.Command {
	var opts loadtestOptions

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Send concurrent searches to a running server and report latency",
		Long: `Drive GET /api/v1/search on a running medsearch server from several
workers for a fixed duration, then print throughput, latency percentiles
and status codes.

Queries cycle through a built-in medicine mix, or through the queries of a
query log when --from-log is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			queries := loadtest.DefaultQueries
			if opts.fromLog != "" {
				records, _, err := evaluation.ReadQueryLogFile(opts.fromLog, math.MaxInt)
				if err != nil {
					return err
				}
				queries = make([]string, 0, len(records))
				for _, r := range records {
					queries = append(queries, r.Query)
				}
				if len(queries) == 0 {
					return fmt.Errorf("no queries in %s", opts.fromLog)
				}
			}

			slog.Info("starting load test", "target", opts.target, "concurrency", opts.concurrency, "duration", opts.duration, "queries", len(queries))
			report, err := loadtest.Run(cmd.Context(), loadtest.Config{
				BaseURL:     opts.target,
				Concurrency: opts.concurrency,
				Duration:    opts.duration,
				Queries:     queries,
				Limit:       opts.limit,
				Mode:        opts.mode,
			})
			if err != nil {
				return err
			}
			report.Print(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.target, "target", "http://localhost:8080", "Base URL of the search server")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 10, "Number of concurrent workers")
	cmd.Flags().DurationVar(&opts.duration, "duration", 10*time.Second, "Test duration")
	cmd.Flags().IntVar(&opts.limit, "limit", 10, "Results per query")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Fusion mode sent with each query")
	cmd.Flags().StringVar(&opts.fromLog, "from-log", "", "Replay queries from a JSONL query log")

	return cmd
}
