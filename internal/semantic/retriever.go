package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/corpus"
)

// Retriever answers embed and nearest-neighbour calls over a precomputed
// corpus embedding table.
type Retriever struct {
	embedder Embedder
	store    VectorStore
	logger   *slog.Logger
}

func NewRetriever(embedder Embedder, store VectorStore) *Retriever {
	return &Retriever{
		embedder: embedder,
		store:    store,
		logger:   slog.Default().With("component", "semantic-retriever", "model", embedder.ModelName()),
	}
}

func (r *Retriever) Embed(ctx context.Context, text string) ([]float32, error) {
	return r.embedder.Embed(ctx, text)
}

// Nearest returns up to k corpus documents ordered by cosine similarity
// descending, ties by DocID ascending.
func (r *Retriever) Nearest(ctx context.Context, vec []float32, k int) ([]Match, error) {
	return r.store.Search(ctx, vec, k)
}

// Search embeds text and returns its nearest documents.
func (r *Retriever) Search(ctx context.Context, text string, k int) ([]Match, error) {
	vec, err := r.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return r.Nearest(ctx, vec, k)
}

// Build embeds every document in batches and loads the store.
func (r *Retriever) Build(ctx context.Context, docs []corpus.Document, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 32
	}
	start := time.Now()
	for from := 0; from < len(docs); from += batchSize {
		to := min(from+batchSize, len(docs))
		texts := make([]string, 0, to-from)
		ids := make([]int, 0, to-from)
		for _, d := range docs[from:to] {
			texts = append(texts, d.Text)
			ids = append(ids, d.ID)
		}
		vecs, err := r.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding documents %d-%d: %w", from, to, err)
		}
		if err := r.store.Add(ids, vecs); err != nil {
			return fmt.Errorf("storing documents %d-%d: %w", from, to, err)
		}
	}
	r.logger.Info("corpus embeddings built", "documents", r.store.Len(), "duration", time.Since(start))
	return nil
}

func (r *Retriever) Len() int {
	return r.store.Len()
}

func (r *Retriever) ModelName() string {
	return r.embedder.ModelName()
}
