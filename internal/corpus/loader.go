package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/errors"
)

// LoadCSV reads the dataset at cfg.Path.
func LoadCSV(cfg config.CorpusConfig) (*Corpus, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus %s: %w", cfg.Path, err)
	}
	defer f.Close()
	c, err := ReadCSV(f, cfg)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", cfg.Path, err)
	}
	return c, nil
}

// ReadCSV parses a header-first CSV. The text column is required; display
// columns that are absent load as empty strings. A corpus with no rows
// returns ErrEmptyCorpus.
func ReadCSV(r io.Reader, cfg config.CorpusConfig) (*Corpus, error) {
	logger := slog.Default().With("component", "corpus")
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.ErrEmptyCorpus
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	textIdx, ok := cols[cfg.TextColumn]
	if !ok {
		return nil, fmt.Errorf("text column %q not found in header", cfg.TextColumn)
	}
	if _, ok := cols[cfg.UsesColumn]; !ok {
		logger.Warn("uses column missing, relevance judging will find nothing", "column", cfg.UsesColumn)
	}
	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var docs []Document
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		text := ""
		if textIdx < len(rec) {
			text = rec[textIdx]
		}
		docs = append(docs, Document{
			Text:        text,
			Name:        field(rec, cfg.NameColumn),
			Uses:        field(rec, cfg.UsesColumn),
			Composition: field(rec, cfg.CompositionColumn),
			SideEffects: field(rec, cfg.SideEffectsColumn),
			Description: field(rec, cfg.DescriptionColumn),
		})
	}
	if len(docs) == 0 {
		return nil, apperrors.ErrEmptyCorpus
	}
	logger.Info("corpus loaded", "documents", len(docs))
	return New(docs), nil
}
