package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/TheFrenchOak/total-reclaw/internal/clock"
	"github.com/TheFrenchOak/total-reclaw/internal/memory"
	"github.com/TheFrenchOak/total-reclaw/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clk := clock.NewFixedClock(1_700_000_000)
	entries := store.NewEntryStore(db, clk)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := memory.NewService(entries, nil, nil, clk, logger)

	return NewRouter(db, svc, "", logger)
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestStoreThenRecallEndpoints(t *testing.T) {
	r := newTestRouter(t)

	storeBody, _ := json.Marshal(map[string]any{"text": "I prefer tabs over spaces"})
	req := httptest.NewRequest(http.MethodPost, "/store", bytes.NewReader(storeBody))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("store status = %d, want 201, body=%s", rec.Code, rec.Body.String())
	}

	recallBody, _ := json.Marshal(map[string]any{"query": "tabs spaces"})
	req = httptest.NewRequest(http.MethodPost, "/recall", bytes.NewReader(recallBody))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("recall status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
}

func TestRecallRequiresQuery(t *testing.T) {
	r := newTestRouter(t)

	body, _ := json.Marshal(map[string]any{"query": ""})
	req := httptest.NewRequest(http.MethodPost, "/recall", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCheckpointRestoreNotFound(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/checkpoint/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body=%s", rec.Code, rec.Body.String())
	}
}

func TestCheckpointSaveAndRestore(t *testing.T) {
	r := newTestRouter(t)

	saveBody, _ := json.Marshal(map[string]any{"intent": "finish the feature", "state": "writing tests"})
	req := httptest.NewRequest(http.MethodPost, "/checkpoint/", bytes.NewReader(saveBody))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("save status = %d, want 201, body=%s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/checkpoint/", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("restore status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
}
