package semantic

import (
	"context"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/medicine-search/pkg/errors"
)

// ErrDisabled is returned by Load when embeddings are switched off.
var ErrDisabled = errors.New("semantic retrieval disabled")

// Load builds the configured embedder and vector store and embeds docs.
// Any error means the caller should run lexical-only.
func Load(ctx context.Context, cfg config.EmbeddingConfig, docs []corpus.Document) (*Retriever, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if len(docs) == 0 {
		return nil, apperrors.ErrEmptyCorpus
	}

	var base Embedder
	switch cfg.Provider {
	case "", "tfidf":
		texts := make([]string, len(docs))
		for i, d := range docs {
			texts[i] = d.Text
		}
		tfidf, err := NewTFIDFEmbedder(texts, tokenizer.Standard{}, DefaultMaxFeatures)
		if err != nil {
			return nil, fmt.Errorf("fitting tfidf: %w", err)
		}
		base = tfidf
	case "http", "ollama":
		base = NewHTTPEmbedder(HTTPConfig{
			URL:       cfg.URL,
			Model:     cfg.Model,
			Timeout:   cfg.Timeout,
			BatchSize: cfg.BatchSize,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	dims := base.Dimensions()
	if dims == 0 {
		probe, err := base.Embed(ctx, docs[0].Text)
		if err != nil {
			return nil, fmt.Errorf("probing embedding dimensions: %w", err)
		}
		dims = len(probe)
	}

	var store VectorStore
	switch cfg.Store {
	case "", "flat":
		store = NewFlatStore(dims)
	case "hnsw":
		store = NewHNSWStore(dims, HNSWConfig{M: cfg.HNSWM, EfSearch: cfg.HNSWEfSize})
	default:
		return nil, fmt.Errorf("unknown vector store %q", cfg.Store)
	}

	r := NewRetriever(NewCachedEmbedder(base, cfg.CacheSize), store)
	if err := r.Build(ctx, docs, cfg.BatchSize); err != nil {
		return nil, err
	}
	return r, nil
}
