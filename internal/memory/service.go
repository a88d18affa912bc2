// Package memory implements the Recall/Store Facade (spec.md §4.8): the
// five user-facing operations (recall, store, forget, checkpoint, prune),
// a scheduled maintenance loop, and the auto-recall/auto-capture hooks.
// Grounded on the donor's internal/memory/service.go for the facade's
// constructor-injection shape (stores + embedder + logger) and its
// guarded-embedding-call pattern.
package memory

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/TheFrenchOak/total-reclaw/internal/clock"
	"github.com/TheFrenchOak/total-reclaw/internal/embedding"
	"github.com/TheFrenchOak/total-reclaw/internal/extract"
	"github.com/TheFrenchOak/total-reclaw/internal/models"
	"github.com/TheFrenchOak/total-reclaw/internal/search"
	"github.com/TheFrenchOak/total-reclaw/internal/store"
	"github.com/TheFrenchOak/total-reclaw/internal/vectorstore"
)

// Error taxonomy per spec.md §7. FatalStorage (open/migration failure) is
// not represented here — it propagates unwrapped from store.Open.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// StoreOutcome reports the result of a store() call.
type StoreOutcome struct {
	Action     string // "created" or "duplicate"
	ID         string
	DecayClass models.DecayClass
}

// Service is the Recall/Store Facade.
type Service struct {
	entries *store.EntryStore
	vectors *vectorstore.Store
	embed   embedding.Provider
	dedup   *Deduplicator
	clock   clock.Clock
	logger  *slog.Logger

	vectorSearchLimit int
	vectorMinScore    float64
}

func NewService(entries *store.EntryStore, vectors *vectorstore.Store, embed embedding.Provider, c clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		entries:           entries,
		vectors:           vectors,
		embed:             embed,
		dedup:             NewDeduplicator(entries, vectors),
		clock:             c,
		logger:            logger,
		vectorSearchLimit: 10,
		vectorMinScore:    0.3,
	}
}

// Recall implements spec.md §4.8 `recall(query, limit, entity?)`: lexical
// and vector searches each run at limit, then fuse to limit.
func (s *Service) Recall(query string, limit int, entity string) ([]models.MemoryEntry, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.RecallFused(query, limit, limit, limit, entity)
}

// RecallFused backs Maintenance.AutoRecall's spec.md §4.8 requirement to
// "compute lexical top-3 and vector top-3, fuse to 5": each backend is
// searched at its own limit before search.MergeResults truncates to fuseLimit.
func (s *Service) RecallFused(query string, lexicalLimit, vectorLimit, fuseLimit int, entity string) ([]models.MemoryEntry, error) {
	if lexicalLimit <= 0 {
		lexicalLimit = 5
	}
	if vectorLimit <= 0 {
		vectorLimit = 5
	}
	if fuseLimit <= 0 {
		fuseLimit = 5
	}

	var lexical []models.MemoryEntry
	if entity != "" {
		byEntity, err := s.entries.Lookup(entity, "")
		if err != nil {
			return nil, fmt.Errorf("lookup: %w", err)
		}
		lexical = append(lexical, byEntity...)
	}

	textResults, err := s.entries.Search(query, lexicalLimit, store.SearchOptions{})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	lexical = append(lexical, textResults...)

	vector := s.searchVectorGuarded(query, vectorLimit)

	return search.MergeResults(lexical, vector, fuseLimit), nil
}

// searchVectorGuarded embeds the query and searches the vector store,
// logging and returning an empty list on any TransientBackend error
// (embedding failure or vector-store unavailability) per spec.md §7.
func (s *Service) searchVectorGuarded(query string, limit int) []models.MemoryEntry {
	if s.vectors == nil || s.embed == nil {
		return nil
	}
	vec, err := s.embed.Embed(query)
	if err != nil {
		s.logger.Warn("embedding failed during recall, degrading to lexical-only", "error", err)
		return nil
	}
	results, err := s.vectors.Search(vec, limit, s.vectorMinScore)
	if err != nil {
		s.logger.Warn("vector search failed during recall, degrading to lexical-only", "error", err)
		return nil
	}
	return results
}

// Store implements spec.md §4.8 `store(...)`.
func (s *Service) Store(text string, importance float64, category models.Category, entity, key, value string, decayClass models.DecayClass) (StoreOutcome, error) {
	if strings.TrimSpace(text) == "" {
		return StoreOutcome{}, fmt.Errorf("%w: text must be non-empty", ErrInvalidInput)
	}

	isDup, err := s.dedup.IsTextDuplicate(text)
	if err != nil {
		return StoreOutcome{}, fmt.Errorf("check duplicate: %w", err)
	}
	if isDup {
		return StoreOutcome{Action: "duplicate"}, nil
	}

	if entity == "" && key == "" && value == "" {
		if t, ok := extract.Extract(text, category); ok {
			entity, key, value = t.Entity, t.Key, t.Value
		}
	}
	if category == "" {
		category = extract.DetectCategory(text)
	}

	id, err := s.entries.Store(store.Candidate{
		Text:       text,
		Category:   category,
		Importance: importance,
		Entity:     entity,
		Key:        key,
		Value:      value,
		Source:     "conversation",
		DecayClass: decayClass,
	})
	if err != nil {
		return StoreOutcome{}, fmt.Errorf("store entry: %w", err)
	}

	entry, err := s.entries.GetByID(id)
	if err != nil || entry == nil {
		return StoreOutcome{Action: "created", ID: id}, nil
	}

	s.writeVectorGuarded(id, text, importance, category)

	return StoreOutcome{Action: "created", ID: id, DecayClass: entry.DecayClass}, nil
}

func (s *Service) writeVectorGuarded(id, text string, importance float64, category models.Category) {
	if s.vectors == nil || s.embed == nil {
		return
	}
	vec, err := s.embed.Embed(text)
	if err != nil {
		s.logger.Warn("embedding failed during store, skipping vector write", "error", err)
		return
	}
	isDup, err := s.vectors.HasDuplicate(vec, 0)
	if err != nil {
		s.logger.Warn("vector duplicate check failed, skipping vector write", "error", err)
		return
	}
	if isDup {
		return
	}
	if _, err := s.vectors.StoreVector(vectorstore.Candidate{
		ID:         id,
		Text:       text,
		Vector:     vec,
		Importance: importance,
		Category:   category,
	}); err != nil {
		s.logger.Warn("vector write failed", "error", err)
	}
}

// Forget implements spec.md §4.8 `forget(memoryId? | query?)`.
func (s *Service) Forget(memoryID, query string) (deleted bool, candidates []models.MemoryEntry, err error) {
	if memoryID == "" && query == "" {
		return false, nil, fmt.Errorf("%w: forget requires memoryId or query", ErrInvalidInput)
	}

	if memoryID != "" {
		ok, err := s.entries.Delete(memoryID)
		if err != nil {
			return false, nil, fmt.Errorf("delete entry: %w", err)
		}
		if s.vectors != nil {
			if delErr := s.vectors.Delete(memoryID); delErr != nil {
				s.logger.Warn("vector delete failed", "id", memoryID, "error", delErr)
			}
		}
		return ok, nil, nil
	}

	results, err := s.Recall(query, 5, "")
	if err != nil {
		return false, nil, fmt.Errorf("recall for forget: %w", err)
	}
	return false, results, nil
}

// SaveCheckpoint implements spec.md §4.8's checkpoint save action.
func (s *Service) SaveCheckpoint(ctx models.CheckpointContext) (string, error) {
	if strings.TrimSpace(ctx.Intent) == "" || strings.TrimSpace(ctx.State) == "" {
		return "", fmt.Errorf("%w: checkpoint save requires intent and state", ErrInvalidInput)
	}
	return s.entries.SaveCheckpoint(ctx)
}

// RestoreCheckpoint implements spec.md §4.8's checkpoint restore action.
func (s *Service) RestoreCheckpoint() (*models.CheckpointContext, error) {
	return s.entries.RestoreCheckpoint()
}

// PruneMode selects which half of prune() to run.
type PruneMode string

const (
	PruneHard PruneMode = "hard"
	PruneSoft PruneMode = "soft"
	PruneBoth PruneMode = "both"
)

// PruneResult reports prune() outcome counts.
type PruneResult struct {
	Expired int
	Decayed int
}

// Prune implements spec.md §4.8 `prune(mode)`.
func (s *Service) Prune(mode PruneMode) (PruneResult, error) {
	if mode == "" {
		mode = PruneBoth
	}
	var result PruneResult

	if mode == PruneHard || mode == PruneBoth {
		n, ids, err := s.entries.PruneExpired()
		if err != nil {
			return result, fmt.Errorf("hard prune: %w", err)
		}
		result.Expired = n
		if s.vectors != nil && len(ids) > 0 {
			if _, err := s.vectors.DeleteMany(ids); err != nil {
				s.logger.Warn("vector prune mirror failed", "error", err)
			}
		}
	}

	if mode == PruneSoft || mode == PruneBoth {
		n, err := s.entries.DecayConfidence()
		if err != nil {
			return result, fmt.Errorf("soft decay: %w", err)
		}
		result.Decayed = n
	}

	return result, nil
}

// ConfirmFact implements spec.md §4.5 `confirmFact(id)` at the facade layer.
func (s *Service) ConfirmFact(id string) (bool, error) {
	return s.entries.ConfirmFact(id)
}

// Stats implements spec.md §4.5 `statsBreakdown()` at the facade layer.
func (s *Service) Stats() (models.StatsBreakdown, error) {
	return s.entries.StatsBreakdown()
}

// BackfillDecayClasses implements spec.md §4.5 `backfillDecayClasses()`
// at the facade layer.
func (s *Service) BackfillDecayClasses() (map[models.DecayClass]int, error) {
	return s.entries.BackfillDecayClasses()
}
