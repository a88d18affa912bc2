package embedding

import (
	"path/filepath"
	"testing"

	"github.com/TheFrenchOak/total-reclaw/internal/clock"
	"github.com/TheFrenchOak/total-reclaw/internal/store"
)

type fakeProvider struct {
	calls int
	vec   []float32
	err   error
}

func (f *fakeProvider) Embed(string) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

func newTestCache(t *testing.T) *store.EmbeddingCacheStore {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewEmbeddingCacheStore(db, clock.NewFixedClock(1_700_000_000))
}

func TestCachedEmbedderCallsProviderOnMiss(t *testing.T) {
	fake := &fakeProvider{vec: []float32{1, 2, 3}}
	e := NewCachedEmbedder(fake, newTestCache(t), "test-model", 3)

	vec, err := e.Embed("hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 1 {
		t.Fatalf("got %v", vec)
	}
	if fake.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", fake.calls)
	}
}

func TestCachedEmbedderHitsCacheOnRepeat(t *testing.T) {
	fake := &fakeProvider{vec: []float32{1, 2, 3}}
	e := NewCachedEmbedder(fake, newTestCache(t), "test-model", 3)

	if _, err := e.Embed("hello world"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if _, err := e.Embed("hello world"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("provider calls = %d, want 1 (second call should hit cache)", fake.calls)
	}
}

func TestContentHashIsStable(t *testing.T) {
	a := ContentHash("same text")
	b := ContentHash("same text")
	if a != b {
		t.Fatalf("ContentHash not stable: %q != %q", a, b)
	}
	if ContentHash("different") == a {
		t.Fatal("ContentHash collided for different inputs")
	}
}
