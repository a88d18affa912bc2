package store

import (
	"database/sql"
	"fmt"

	"github.com/TheFrenchOak/total-reclaw/internal/clock"
)

// EmbeddingCacheEntry is a content-hash keyed cached embedding, grounded
// on the donor's embedding_cache table (models.EmbeddingCacheEntry).
type EmbeddingCacheEntry struct {
	ContentHash string
	Embedding   []byte
	Dimension   int
	Model       string
}

// EmbeddingCacheStore handles the embedding_cache table.
type EmbeddingCacheStore struct {
	db    *DB
	clock clock.Clock
}

func NewEmbeddingCacheStore(db *DB, c clock.Clock) *EmbeddingCacheStore {
	return &EmbeddingCacheStore{db: db, clock: c}
}

// Get returns the cached entry for hash, or nil if absent.
func (s *EmbeddingCacheStore) Get(hash string) (*EmbeddingCacheEntry, error) {
	var e EmbeddingCacheEntry
	e.ContentHash = hash
	err := s.db.QueryRow(`SELECT embedding, dimension, model FROM embedding_cache WHERE content_hash = ?`, hash).
		Scan(&e.Embedding, &e.Dimension, &e.Model)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("embedding cache get: %w", err)
	}
	return &e, nil
}

// Put upserts a cache entry.
func (s *EmbeddingCacheStore) Put(e *EmbeddingCacheEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO embedding_cache (content_hash, embedding, dimension, model, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO UPDATE SET
			embedding = excluded.embedding, dimension = excluded.dimension,
			model = excluded.model, updated_at = excluded.updated_at
	`, e.ContentHash, e.Embedding, e.Dimension, e.Model, s.clock.Now())
	if err != nil {
		return fmt.Errorf("embedding cache put: %w", err)
	}
	return nil
}
