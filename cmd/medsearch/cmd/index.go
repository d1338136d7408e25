package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/indexer"
)

func newIndexCmd(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the indexes from the corpus and report statistics",
		Long: `Load the corpus CSV, fit BM25 and embed every document, then print
document count, vocabulary size, average document length and whether the
semantic channel is available. Useful to validate a dataset before serving.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), root.cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			return printBuildStats(cmd.OutOrStdout(), a.builder.LastBuild(), format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func printBuildStats(out io.Writer, stats *indexer.BuildStats, format string) error {
	if stats == nil {
		return fmt.Errorf("index was not built")
	}
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	semantic := "disabled"
	if stats.Semantic {
		semantic = stats.SemanticModel
	}
	fmt.Fprintln(out, titleStyle.Render("Index built"))
	fmt.Fprintf(out, "Documents:      %d\n", stats.Documents)
	fmt.Fprintf(out, "Vocabulary:     %d\n", stats.Vocabulary)
	fmt.Fprintf(out, "Avg doc length: %.2f\n", stats.AvgDocLength)
	fmt.Fprintf(out, "Generation:     %d\n", stats.Generation)
	fmt.Fprintf(out, "Semantic:       %s\n", semantic)
	fmt.Fprintf(out, "Duration:       %s\n", stats.Duration)
	return nil
}
