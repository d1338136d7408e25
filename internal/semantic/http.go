package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/resilience"
)

// HTTPConfig configures an embedder speaking the Ollama /api/embed
// protocol.
type HTTPConfig struct {
	URL        string
	Model      string
	Timeout    time.Duration
	BatchSize  int
	MaxRetries int
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("embedding request failed with status %d: %s", e.code, e.body)
}

// HTTPEmbedder calls a remote embedding model. Server errors and transport
// failures are retried with backoff; 4xx responses are not.
type HTTPEmbedder struct {
	cfg    HTTPConfig
	client *http.Client
	dims   atomic.Int64
}

func NewHTTPEmbedder(cfg HTTPConfig) *HTTPEmbedder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &HTTPEmbedder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (e *HTTPEmbedder) Dimensions() int { return int(e.dims.Load()) }

func (e *HTTPEmbedder) ModelName() string { return e.cfg.Model }

func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch splits texts into BatchSize requests.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(texts))
		vecs, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *HTTPEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := resilience.Retry(ctx, "embed", resilience.RetryConfig{
		MaxAttempts:  e.cfg.MaxRetries,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Retryable: func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return se.code >= 500
			}
			return !errors.Is(err, context.Canceled)
		},
	}, func(ctx context.Context) error {
		var err error
		vecs, err = e.do(ctx, texts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return vecs, nil
}

func (e *HTTPEmbedder) do(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.cfg.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{code: resp.StatusCode, body: string(msg)}
	}
	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(decoded.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(decoded.Embeddings))
	}
	out := make([][]float32, len(decoded.Embeddings))
	for i, emb := range decoded.Embeddings {
		vec := make([]float32, len(emb))
		for j, v := range emb {
			vec[j] = float32(v)
		}
		normalize(vec)
		out[i] = vec
	}
	if len(out) > 0 {
		e.dims.CompareAndSwap(0, int64(len(out[0])))
	}
	return out, nil
}
