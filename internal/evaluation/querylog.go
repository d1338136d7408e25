// Package evaluation replays the search query log against a relevance
// judgement derived from each document's uses and reports Precision@k,
// Recall@k, MRR and nDCG@k per query.
package evaluation

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/analytics"
	apperrors "github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/logger"
)

const maxLogLine = 1 << 20

// ReadQueryLogFile opens path and reads it with ReadQueryLog.
func ReadQueryLogFile(path string, numDocs int) ([]analytics.QueryLogRecord, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening query log %s: %w", path, err)
	}
	defer f.Close()
	return ReadQueryLog(f, numDocs)
}

// ReadQueryLog parses one JSON record per line. Lines that are not valid
// JSON, lack a query, repeat a document, reference a document outside
// [0, numDocs) or exceed maxLogLine bytes are skipped with a warning and
// counted; blank lines are ignored. Only an I/O failure aborts the read.
func ReadQueryLog(r io.Reader, numDocs int) ([]analytics.QueryLogRecord, int, error) {
	log := logger.WithComponent("evaluation")
	br := bufio.NewReaderSize(r, 64*1024)

	var (
		records []analytics.QueryLogRecord
		skipped int
		lineNo  int
	)
	for {
		raw, oversized, err := nextLine(br, maxLogLine)
		atEOF := errors.Is(err, io.EOF)
		if err != nil && !atEOF {
			return records, skipped, fmt.Errorf("reading query log: %w", err)
		}
		if atEOF && len(raw) == 0 && !oversized {
			break
		}
		lineNo++
		switch line := bytes.TrimSpace(raw); {
		case oversized:
			skipped++
			log.Warn("skipping query log line", "line", lineNo,
				"error", fmt.Errorf("%w: line exceeds %d bytes", apperrors.ErrMalformedLogRecord, maxLogLine))
		case len(line) == 0:
		default:
			rec, err := parseRecord(line, numDocs)
			if err != nil {
				skipped++
				log.Warn("skipping query log line", "line", lineNo, "error", err)
				break
			}
			records = append(records, rec)
		}
		if atEOF {
			break
		}
	}
	if skipped > 0 {
		slog.Info("query log loaded", "records", len(records), "skipped", skipped)
	}
	return records, skipped, nil
}

// nextLine reads up to and including the next newline. A line longer than
// limit is drained and reported as oversized without its content.
func nextLine(br *bufio.Reader, limit int) (line []byte, oversized bool, err error) {
	for {
		chunk, err := br.ReadSlice('\n')
		if !oversized {
			if len(line)+len(chunk) > limit+1 {
				oversized, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return line, oversized, err
		}
	}
}

func parseRecord(line []byte, numDocs int) (analytics.QueryLogRecord, error) {
	var raw struct {
		Query   *string `json:"query"`
		Results []int   `json:"results"`
	}
	if err := json.Unmarshal(line, &raw); err != nil {
		return analytics.QueryLogRecord{}, fmt.Errorf("%w: %v", apperrors.ErrMalformedLogRecord, err)
	}
	if raw.Query == nil {
		return analytics.QueryLogRecord{}, fmt.Errorf("%w: missing query", apperrors.ErrMalformedLogRecord)
	}
	seen := make(map[int]struct{}, len(raw.Results))
	for _, id := range raw.Results {
		if id < 0 || id >= numDocs {
			return analytics.QueryLogRecord{}, fmt.Errorf("%w: document %d out of range [0,%d)",
				apperrors.ErrMalformedLogRecord, id, numDocs)
		}
		if _, dup := seen[id]; dup {
			return analytics.QueryLogRecord{}, fmt.Errorf("%w: document %d listed twice",
				apperrors.ErrMalformedLogRecord, id)
		}
		seen[id] = struct{}{}
	}
	return analytics.QueryLogRecord{Query: *raw.Query, Results: raw.Results}, nil
}
