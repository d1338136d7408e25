package semantic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultEmbeddingCacheSize is the number of query vectors kept in memory.
const DefaultEmbeddingCacheSize = 1000

// CachedEmbedder keeps recent query embeddings in an LRU so repeated
// fallback queries skip the model.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

func NewCachedEmbedder(inner Embedder, size int) *CachedEmbedder {
	if size <= 0 {
		size = DefaultEmbeddingCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &CachedEmbedder{inner: inner, cache: cache}
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text + "\x00" + c.inner.ModelName()))
	return hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	k := c.key(text)
	if vec, ok := c.cache.Get(k); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(k, vec)
	return vec, nil
}

// EmbedBatch bypasses the cache: batches are corpus builds, not queries.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

// Len is the number of cached vectors.
func (c *CachedEmbedder) Len() int { return c.cache.Len() }
