package store

import (
	"path/filepath"
	"testing"

	"github.com/TheFrenchOak/total-reclaw/internal/clock"
	"github.com/TheFrenchOak/total-reclaw/internal/models"
)

func openTestDB(t *testing.T) (*DB, *clock.FixedClock) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, clock.NewFixedClock(1_700_000_000)
}

func TestStoreInsertAndGetByID(t *testing.T) {
	db, clk := openTestDB(t)
	es := NewEntryStore(db, clk)

	id, err := es.Store(Candidate{Text: "I prefer dark mode", Category: models.CategoryPreference, Entity: "user", Key: "preference", Value: "dark mode"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty id")
	}

	entry, err := es.GetByID(id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if entry == nil {
		t.Fatal("expected entry, got nil")
	}
	if entry.Text != "I prefer dark mode" || entry.Entity != "user" || entry.Key != "preference" {
		t.Fatalf("got %+v", entry)
	}
	if entry.DecayClass != models.DecayStable {
		t.Fatalf("decay class = %v, want stable", entry.DecayClass)
	}
}

func TestStoreUpsertByEntityKey(t *testing.T) {
	db, clk := openTestDB(t)
	es := NewEntryStore(db, clk)

	id1, err := es.Store(Candidate{Text: "My editor is vim", Entity: "user", Key: "editor", Value: "vim"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	id2, err := es.Store(Candidate{Text: "My editor is neovim", Entity: "USER", Key: "EDITOR", Value: "neovim"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected upsert to reuse id, got %q and %q", id1, id2)
	}

	count, err := es.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("Count = %d, want 1", count)
	}

	entry, err := es.GetByID(id1)
	if err != nil || entry == nil {
		t.Fatalf("GetByID: %v, %v", entry, err)
	}
	if entry.Value != "neovim" {
		t.Fatalf("Value = %q, want neovim", entry.Value)
	}
}

func TestSearchFindsStoredText(t *testing.T) {
	db, clk := openTestDB(t)
	es := NewEntryStore(db, clk)

	if _, err := es.Store(Candidate{Text: "I prefer Python for scripting tasks"}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := es.Store(Candidate{Text: "the weather today is sunny and warm"}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	results, err := es.Search("Python scripting", 5, SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search results = %d, want 1", len(results))
	}
	if results[0].Backend != models.BackendLexical {
		t.Fatalf("Backend = %q, want lexical", results[0].Backend)
	}
}

func TestSearchEmptyQueryReturnsNil(t *testing.T) {
	db, clk := openTestDB(t)
	es := NewEntryStore(db, clk)

	results, err := es.Search("a I the", 5, SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results != nil {
		t.Fatalf("Search(stopwords only) = %v, want nil", results)
	}
}

func TestLookupByEntityAndKey(t *testing.T) {
	db, clk := openTestDB(t)
	es := NewEntryStore(db, clk)

	if _, err := es.Store(Candidate{Text: "t1", Entity: "project", Key: "status", Value: "in progress"}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := es.Store(Candidate{Text: "t2", Entity: "project", Key: "owner", Value: "alice"}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	all, err := es.Lookup("project", "")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Lookup(entity only) = %d entries, want 2", len(all))
	}

	one, err := es.Lookup("PROJECT", "STATUS")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(one) != 1 || one[0].Value != "in progress" {
		t.Fatalf("Lookup(case-insensitive) = %+v", one)
	}
}

func TestPruneExpired(t *testing.T) {
	db, clk := openTestDB(t)
	es := NewEntryStore(db, clk)

	past := clk.Now() - 100
	id, err := es.Store(Candidate{Text: "stale session note", DecayClass: models.DecaySession, ExpiresAt: &past})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	n, ids, err := es.PruneExpired()
	if err != nil {
		t.Fatalf("PruneExpired: %v", err)
	}
	if n != 1 || len(ids) != 1 || ids[0] != id {
		t.Fatalf("PruneExpired = %d, %v, want 1, [%s]", n, ids, id)
	}

	entry, err := es.GetByID(id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if entry != nil {
		t.Fatal("expected entry to be gone after prune")
	}
}

func TestDecayConfidenceReducesOverTime(t *testing.T) {
	db, clk := openTestDB(t)
	es := NewEntryStore(db, clk)

	id, err := es.Store(Candidate{Text: "working on the migration", DecayClass: models.DecayActive})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	ttl := models.TTLSeconds[models.DecayActive]
	clk.Advance(ttl / 2)

	if _, err := es.DecayConfidence(); err != nil {
		t.Fatalf("DecayConfidence: %v", err)
	}

	entry, err := es.GetByID(id)
	if err != nil || entry == nil {
		t.Fatalf("GetByID: %v, %v", entry, err)
	}
	if entry.Confidence >= 1.0 || entry.Confidence <= 0.0 {
		t.Fatalf("Confidence = %f, want strictly between 0 and 1", entry.Confidence)
	}
}

func TestConfirmFactResetsConfidence(t *testing.T) {
	db, clk := openTestDB(t)
	es := NewEntryStore(db, clk)

	id, err := es.Store(Candidate{Text: "working on the migration", DecayClass: models.DecayActive})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	clk.Advance(models.TTLSeconds[models.DecayActive] / 2)
	if _, err := es.DecayConfidence(); err != nil {
		t.Fatalf("DecayConfidence: %v", err)
	}

	ok, err := es.ConfirmFact(id)
	if err != nil || !ok {
		t.Fatalf("ConfirmFact: ok=%v err=%v", ok, err)
	}

	entry, err := es.GetByID(id)
	if err != nil || entry == nil {
		t.Fatalf("GetByID: %v, %v", entry, err)
	}
	if entry.Confidence != 1.0 {
		t.Fatalf("Confidence after confirm = %f, want 1.0", entry.Confidence)
	}
}

func TestHasDuplicate(t *testing.T) {
	db, clk := openTestDB(t)
	es := NewEntryStore(db, clk)

	if _, err := es.Store(Candidate{Text: "an exact phrase"}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	dup, err := es.HasDuplicate("an exact phrase")
	if err != nil || !dup {
		t.Fatalf("HasDuplicate = %v, %v, want true", dup, err)
	}

	dup, err = es.HasDuplicate("a different phrase")
	if err != nil || dup {
		t.Fatalf("HasDuplicate = %v, %v, want false", dup, err)
	}
}

func TestStatsBreakdown(t *testing.T) {
	db, clk := openTestDB(t)
	es := NewEntryStore(db, clk)

	if _, err := es.Store(Candidate{Text: "a permanent fact", DecayClass: models.DecayPermanent}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := es.Store(Candidate{Text: "a session note", DecayClass: models.DecaySession}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	stats, err := es.StatsBreakdown()
	if err != nil {
		t.Fatalf("StatsBreakdown: %v", err)
	}
	if stats.Total != 2 {
		t.Fatalf("Total = %d, want 2", stats.Total)
	}
	if stats.ByDecayClass[models.DecayPermanent] != 1 || stats.ByDecayClass[models.DecaySession] != 1 {
		t.Fatalf("ByDecayClass = %+v", stats.ByDecayClass)
	}
}

func TestBackfillDecayClasses(t *testing.T) {
	db, clk := openTestDB(t)
	es := NewEntryStore(db, clk)

	id, err := es.Store(Candidate{Text: "her birthday is march 3rd", DecayClass: models.DecayStable})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	counts, err := es.BackfillDecayClasses()
	if err != nil {
		t.Fatalf("BackfillDecayClasses: %v", err)
	}
	if counts[models.DecayPermanent] != 1 {
		t.Fatalf("counts = %+v, want permanent=1", counts)
	}

	entry, err := es.GetByID(id)
	if err != nil || entry == nil {
		t.Fatalf("GetByID: %v, %v", entry, err)
	}
	if entry.DecayClass != models.DecayPermanent {
		t.Fatalf("DecayClass = %v, want permanent", entry.DecayClass)
	}
	if entry.ExpiresAt != nil {
		t.Fatalf("ExpiresAt = %v, want nil for permanent", entry.ExpiresAt)
	}
}

func TestDeleteMemory(t *testing.T) {
	db, clk := openTestDB(t)
	es := NewEntryStore(db, clk)

	id, err := es.Store(Candidate{Text: "removable note"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	ok, err := es.Delete(id)
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v, want true", ok, err)
	}

	ok, err = es.Delete(id)
	if err != nil || ok {
		t.Fatalf("Delete (already gone) = %v, %v, want false", ok, err)
	}
}

func TestSaveAndRestoreCheckpoint(t *testing.T) {
	db, clk := openTestDB(t)
	es := NewEntryStore(db, clk)

	ctx := models.CheckpointContext{
		Intent:          "ship the memory store",
		State:           "writing tests",
		ExpectedOutcome: "green test suite",
		WorkingFiles:    []string{"entries.go", "entries_test.go"},
	}
	if _, err := es.SaveCheckpoint(ctx); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	restored, err := es.RestoreCheckpoint()
	if err != nil {
		t.Fatalf("RestoreCheckpoint: %v", err)
	}
	if restored == nil {
		t.Fatal("expected a restored checkpoint")
	}
	if restored.Intent != ctx.Intent || restored.State != ctx.State {
		t.Fatalf("got %+v", restored)
	}
	if restored.SavedAt != clk.Now() {
		t.Fatalf("SavedAt = %d, want %d", restored.SavedAt, clk.Now())
	}
}

func TestRestoreCheckpointNoneSaved(t *testing.T) {
	db, clk := openTestDB(t)
	es := NewEntryStore(db, clk)

	restored, err := es.RestoreCheckpoint()
	if err != nil {
		t.Fatalf("RestoreCheckpoint: %v", err)
	}
	if restored != nil {
		t.Fatalf("RestoreCheckpoint (none saved) = %+v, want nil", restored)
	}
}

func TestEmbeddingCacheGetPut(t *testing.T) {
	db, clk := openTestDB(t)
	cache := NewEmbeddingCacheStore(db, clk)

	missing, err := cache.Get("abc123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if missing != nil {
		t.Fatal("expected cache miss to return nil")
	}

	entry := &EmbeddingCacheEntry{ContentHash: "abc123", Embedding: []byte{1, 2, 3, 4}, Dimension: 4, Model: "test-model"}
	if err := cache.Put(entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := cache.Get("abc123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Model != "test-model" || got.Dimension != 4 {
		t.Fatalf("got %+v", got)
	}
}
