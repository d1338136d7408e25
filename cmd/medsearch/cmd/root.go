// Package cmd provides the medsearch CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/logger"
)

// rootOptions holds the persistent flags and the config they resolve to.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	corpusPath string

	cfg *config.Config
}

// NewRootCmd creates the root command for the medsearch CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "medsearch",
		Short: "Medicine search with BM25, semantic fallback and offline evaluation",
		Long: `medsearch ranks medicine records for free-text symptom and drug queries.

Lexical BM25 answers first. When it finds nothing above the score threshold
the query is spell-corrected and answered by the semantic channel instead.
Hybrid mode blends both channels with a tunable weight.

Every served query is logged, and the log can be replayed offline to
compute Precision@k, Recall@k, MRR and nDCG@k.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Override log format (json, text)")
	cmd.PersistentFlags().StringVar(&opts.corpusPath, "corpus", "", "Override the corpus CSV path")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newEvaluateCmd(opts))
	cmd.AddCommand(newLoadtestCmd(opts))

	return cmd
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	if o.corpusPath != "" {
		cfg.Corpus.Path = o.corpusPath
	}
	logger.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	o.cfg = cfg
	return nil
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
