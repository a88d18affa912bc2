// Package vectorstore implements the fixed-dimensional vector store
// described in spec.md §4.6: one collection named "memories" backed by an
// embedded, on-disk vector database. Grounded on the donor's
// internal/vectorstore/qdrant.go for its method shapes (Store/Search/
// DeletePoints) and on the retrieval pack's chromem-go wrapper
// (becomeliminal-nim-go-sdk/memory/store/chromem/chromem.go) for how to
// drive philippgille/chromem-go as the backing engine — chosen over the
// donor's Qdrant HTTP client because spec.md wants an embedded directory,
// not a network service; see DESIGN.md.
package vectorstore

import (
	"context"
	"fmt"
	"regexp"

	chromem "github.com/philippgille/chromem-go"
	"github.com/google/uuid"

	"github.com/TheFrenchOak/total-reclaw/internal/clock"
	"github.com/TheFrenchOak/total-reclaw/internal/models"
)

const collectionName = "memories"

// defaultMinScore is spec.md §4.6's default minScore for Search.
const defaultMinScore = 0.3

// defaultDupThreshold is spec.md §4.6's default threshold for HasDuplicate.
const defaultDupThreshold = 0.95

var hexUUIDRe = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Store owns the single "memories" collection inside a chromem-go database
// persisted under a caller-supplied directory.
type Store struct {
	db    *chromem.DB
	col   *chromem.Collection
	dim   int
	clock clock.Clock
}

// Open opens (or creates) the vector database directory at dir and ensures
// the "memories" collection exists, seeding it with a single throwaway
// document to pin the vector dimension when the collection is new, then
// deleting that seed row — exactly as spec.md §4.6 describes.
func Open(dir string, dim int, c clock.Clock) (*Store, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vector db: %w", err)
	}

	col := db.GetCollection(collectionName, nil)
	isNew := col == nil
	if isNew {
		col, err = db.CreateCollection(collectionName, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("create collection: %w", err)
		}
	}

	s := &Store{db: db, col: col, dim: dim, clock: c}

	if isNew {
		seedID := uuid.NewString()
		seedVec := make([]float32, dim)
		seedVec[0] = 1.0
		if err := col.AddDocument(context.Background(), chromem.Document{
			ID:        seedID,
			Embedding: seedVec,
		}); err != nil {
			return nil, fmt.Errorf("seed collection: %w", err)
		}
		if err := s.deleteIDs(context.Background(), []string{seedID}); err != nil {
			return nil, fmt.Errorf("delete seed row: %w", err)
		}
	}

	return s, nil
}

// Candidate is the caller-supplied input to Store.
type Candidate struct {
	ID         string // optional; generated if empty
	Text       string
	Vector     []float32
	Importance float64
	Category   models.Category
}

// StoreVector implements spec.md §4.6 `store({id?, text, vector, importance, category})`.
func (s *Store) StoreVector(c Candidate) (string, error) {
	id := c.ID
	if id == "" {
		id = uuid.NewString()
	}

	ctx := context.Background()
	_ = s.deleteIDs(ctx, []string{id}) // best-effort: drop any existing row with this id

	now := s.clock.Now()
	doc := chromem.Document{
		ID:        id,
		Content:   c.Text,
		Embedding: c.Vector,
		Metadata: map[string]string{
			"text":       c.Text,
			"importance": fmt.Sprintf("%v", c.Importance),
			"category":   string(c.Category),
			"created_at": fmt.Sprintf("%d", now),
		},
	}
	if err := s.col.AddDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("store vector: %w", err)
	}
	return id, nil
}

// Search implements spec.md §4.6 `search(vector, limit, minScore)`:
// k-NN with k=limit, score = 1/(1+distance), filtered to score>=minScore.
// Returned entries project entity/key/value=nil and decayClass=stable per
// the spec's documented vector-search limitation (see DESIGN.md).
func (s *Store) Search(vector []float32, limit int, minScore float64) ([]models.MemoryEntry, error) {
	if minScore == 0 {
		minScore = defaultMinScore
	}
	n := s.col.Count()
	if n == 0 {
		return nil, nil
	}
	if limit > n {
		limit = n
	}

	results, err := s.col.QueryEmbedding(context.Background(), vector, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	var out []models.MemoryEntry
	for _, r := range results {
		distance := 1 - float64(r.Similarity)
		score := 1 / (1 + distance)
		if score < minScore {
			continue
		}
		out = append(out, models.MemoryEntry{
			ID:         r.ID,
			Text:       r.Content,
			Category:   models.Category(r.Metadata["category"]),
			DecayClass: models.DecayStable,
			Score:      score,
			Backend:    models.BackendVector,
		})
	}
	return out, nil
}

// HasDuplicate implements spec.md §4.6 `hasDuplicate(vector, threshold=0.95)`.
func (s *Store) HasDuplicate(vector []float32, threshold float64) (bool, error) {
	if threshold == 0 {
		threshold = defaultDupThreshold
	}
	if s.col.Count() == 0 {
		return false, nil
	}
	results, err := s.col.QueryEmbedding(context.Background(), vector, 1, nil, nil)
	if err != nil {
		return false, fmt.Errorf("duplicate query: %w", err)
	}
	if len(results) == 0 {
		return false, nil
	}
	distance := 1 - float64(results[0].Similarity)
	score := 1 / (1 + distance)
	return score >= threshold, nil
}

// Delete implements spec.md §4.6 `delete(id)`: silently skips ids that are
// not hex-UUID shaped.
func (s *Store) Delete(id string) error {
	if !hexUUIDRe.MatchString(id) {
		return nil
	}
	return s.deleteIDs(context.Background(), []string{id})
}

// DeleteMany implements spec.md §4.6 `deleteMany(ids)`: continues on
// per-id errors, skips non-hex-UUID ids, and returns the deleted count.
func (s *Store) DeleteMany(ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		if !hexUUIDRe.MatchString(id) {
			continue
		}
		if err := s.deleteIDs(context.Background(), []string{id}); err != nil {
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (s *Store) deleteIDs(ctx context.Context, ids []string) error {
	return s.col.Delete(ctx, nil, nil, ids...)
}

// Dimension returns the fixed vector width this store was opened with.
func (s *Store) Dimension() int { return s.dim }

// Close is a no-op: chromem-go's persistent DB writes each document to
// disk synchronously and holds no file handle that needs releasing.
func (s *Store) Close() error { return nil }
