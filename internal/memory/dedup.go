package memory

import (
	"github.com/TheFrenchOak/total-reclaw/internal/store"
	"github.com/TheFrenchOak/total-reclaw/internal/vectorstore"
)

// Deduplicator wraps the two duplicate checks spec.md's store() operation
// relies on: an exact lexical text match (hasDuplicate(text)) and a
// cosine-band vector check (vectorstore.HasDuplicate). Grounded on the
// donor's internal/memory/dedup.go, simplified to spec.md §4.8's "if
// hasDuplicate(text) return a duplicate marker" contract — no near-
// duplicate band, since spec.md does not define one for the lexical path.
type Deduplicator struct {
	entries *store.EntryStore
	vectors *vectorstore.Store
}

func NewDeduplicator(entries *store.EntryStore, vectors *vectorstore.Store) *Deduplicator {
	return &Deduplicator{entries: entries, vectors: vectors}
}

// IsTextDuplicate implements spec.md §4.5 `hasDuplicate(text)`.
func (d *Deduplicator) IsTextDuplicate(text string) (bool, error) {
	return d.entries.HasDuplicate(text)
}

// IsVectorDuplicate implements spec.md §4.6 `hasDuplicate(vector, threshold=0.95)`.
// Returns false without error when the vector store is unavailable (nil),
// matching the TransientBackend downgrade policy in spec.md §7.
func (d *Deduplicator) IsVectorDuplicate(vector []float32) (bool, error) {
	if d.vectors == nil || len(vector) == 0 {
		return false, nil
	}
	return d.vectors.HasDuplicate(vector, 0)
}
