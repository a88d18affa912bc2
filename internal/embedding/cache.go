package embedding

import (
	"crypto/sha256"
	"fmt"

	"github.com/TheFrenchOak/total-reclaw/internal/search"
	"github.com/TheFrenchOak/total-reclaw/internal/store"
)

// CachedEmbedder wraps a Provider with content-hash caching via SQLite.
type CachedEmbedder struct {
	client Provider
	cache  *store.EmbeddingCacheStore
	model  string
	dim    int
}

func NewCachedEmbedder(client Provider, cache *store.EmbeddingCacheStore, model string, dim int) *CachedEmbedder {
	return &CachedEmbedder{
		client: client,
		cache:  cache,
		model:  model,
		dim:    dim,
	}
}

// Embed returns the embedding for text, using cache when available.
func (e *CachedEmbedder) Embed(text string) ([]float32, error) {
	hash := ContentHash(text)

	// Check cache
	entry, err := e.cache.Get(hash)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if entry != nil {
		if vec := search.BytesToFloat32(entry.Embedding); vec != nil {
			return vec, nil
		}
	}

	// Generate embedding
	vec, err := e.client.Embed(text)
	if err != nil {
		return nil, err
	}

	// Store in cache
	cacheEntry := &store.EmbeddingCacheEntry{
		ContentHash: hash,
		Embedding:   search.Float32ToBytes(vec),
		Dimension:   e.dim,
		Model:       e.model,
	}
	if err := e.cache.Put(cacheEntry); err != nil {
		// Non-fatal: a failed cache write is ignored
		_ = err
	}

	return vec, nil
}

// ContentHash computes a SHA-256 hash of text content.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h)
}
