package analytics

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/kafka"
)

// Sink receives batches of query log records.
type Sink interface {
	Write(ctx context.Context, records []QueryLogRecord) error
	Close() error
}

// FileSink appends records to a JSON Lines file.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

func NewFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening query log: %w", err)
	}
	return &FileSink{file: f, buf: bufio.NewWriter(f)}, nil
}

func (s *FileSink) Write(_ context.Context, records []QueryLogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enc := json.NewEncoder(s.buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encoding query log record: %w", err)
		}
	}
	return s.buf.Flush()
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.buf.Flush(), s.file.Close())
}

// KafkaSink publishes each record to the query-log topic keyed by query, so
// repeats of one query land on one partition.
type KafkaSink struct {
	producer *kafka.Producer
}

func NewKafkaSink(producer *kafka.Producer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Write(ctx context.Context, records []QueryLogRecord) error {
	events := make([]kafka.Event, len(records))
	for i, rec := range records {
		events[i] = kafka.Event{Key: rec.Query, Type: "query_log", Value: rec}
	}
	return s.producer.Publish(ctx, events...)
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
