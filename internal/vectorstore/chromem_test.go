package vectorstore

import (
	"testing"

	"github.com/TheFrenchOak/total-reclaw/internal/clock"
	"github.com/TheFrenchOak/total-reclaw/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), 4, clock.NewFixedClock(1_700_000_000))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestStoreVectorAndSearch(t *testing.T) {
	s := openTestStore(t)

	id, err := s.StoreVector(Candidate{Text: "dark mode preference", Vector: []float32{1, 0, 0, 0}, Importance: 0.8, Category: models.CategoryPreference})
	if err != nil {
		t.Fatalf("StoreVector: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty id")
	}

	results, err := s.Search([]float32{1, 0, 0, 0}, 5, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search results = %d, want 1", len(results))
	}
	if results[0].ID != id || results[0].Backend != models.BackendVector {
		t.Fatalf("got %+v", results[0])
	}
	if results[0].DecayClass != models.DecayStable {
		t.Fatalf("DecayClass = %v, want stable", results[0].DecayClass)
	}
}

func TestSearchEmptyCollection(t *testing.T) {
	s := openTestStore(t)

	results, err := s.Search([]float32{1, 0, 0, 0}, 5, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results != nil {
		t.Fatalf("Search(empty) = %v, want nil", results)
	}
}

func TestSearchFiltersByMinScore(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.StoreVector(Candidate{Text: "orthogonal vector", Vector: []float32{0, 1, 0, 0}}); err != nil {
		t.Fatalf("StoreVector: %v", err)
	}

	results, err := s.Search([]float32{1, 0, 0, 0}, 5, 0.99)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Search with high minScore = %d results, want 0", len(results))
	}
}

func TestHasDuplicate(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.StoreVector(Candidate{Text: "a", Vector: []float32{1, 0, 0, 0}}); err != nil {
		t.Fatalf("StoreVector: %v", err)
	}

	dup, err := s.HasDuplicate([]float32{1, 0, 0, 0}, 0)
	if err != nil || !dup {
		t.Fatalf("HasDuplicate(identical) = %v, %v, want true", dup, err)
	}

	dup, err = s.HasDuplicate([]float32{0, 1, 0, 0}, 0)
	if err != nil || dup {
		t.Fatalf("HasDuplicate(orthogonal) = %v, %v, want false", dup, err)
	}
}

func TestDeleteSkipsNonUUID(t *testing.T) {
	s := openTestStore(t)

	if err := s.Delete("not-a-uuid"); err != nil {
		t.Fatalf("Delete(non-uuid) should be a no-op, got %v", err)
	}
}

func TestDeleteRemovesVector(t *testing.T) {
	s := openTestStore(t)

	id, err := s.StoreVector(Candidate{Text: "removable", Vector: []float32{1, 0, 0, 0}})
	if err != nil {
		t.Fatalf("StoreVector: %v", err)
	}
	if err := s.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	results, err := s.Search([]float32{1, 0, 0, 0}, 5, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Search after delete = %d results, want 0", len(results))
	}
}

func TestDeleteManySkipsInvalidIDsAndCountsValid(t *testing.T) {
	s := openTestStore(t)

	id, err := s.StoreVector(Candidate{Text: "removable", Vector: []float32{1, 0, 0, 0}})
	if err != nil {
		t.Fatalf("StoreVector: %v", err)
	}

	n, err := s.DeleteMany([]string{id, "not-a-uuid"})
	if err != nil {
		t.Fatalf("DeleteMany: %v", err)
	}
	if n != 1 {
		t.Fatalf("DeleteMany deleted = %d, want 1", n)
	}
}

func TestDimension(t *testing.T) {
	s := openTestStore(t)
	if s.Dimension() != 4 {
		t.Fatalf("Dimension() = %d, want 4", s.Dimension())
	}
}
