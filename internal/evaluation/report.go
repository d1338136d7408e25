package evaluation

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Header returns the CSV and table column names for cut-off k.
func Header(k int) []string {
	return []string{
		"Query",
		fmt.Sprintf("Precision@%d", k),
		fmt.Sprintf("Recall@%d", k),
		"MRR",
		fmt.Sprintf("nDCG@%d", k),
	}
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func (q QueryMetrics) row() []string {
	return []string{q.Query, formatScore(q.Precision), formatScore(q.Recall), formatScore(q.MRR), formatScore(q.NDCG)}
}

// WriteCSV writes one row per query under Header(report.K).
func WriteCSV(w io.Writer, report *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(report.K)); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, q := range report.Queries {
		if err := cw.Write(q.row()); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteCSVFile(path string, report *Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCSV(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A3E635")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	meanStyle   = numberStyle.Bold(true)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// RenderTable formats the report for a terminal, with the mean as the last
// row.
func RenderTable(report *Report) string {
	rows := make([][]string, 0, len(report.Queries)+1)
	for _, q := range report.Queries {
		rows = append(rows, q.row())
	}
	mean := report.Mean()
	rows = append(rows, []string{
		fmt.Sprintf("mean of %d", mean.Queries),
		formatScore(mean.Precision), formatScore(mean.Recall), formatScore(mean.MRR), formatScore(mean.NDCG),
	})
	meanRow := len(rows) - 1

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(Header(report.K)...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == meanRow && col > 0:
				return meanStyle
			case col > 0:
				return numberStyle
			default:
				return cellStyle
			}
		})
	return t.Render()
}
