package api

import (
	"errors"
	"net/http"

	"github.com/TheFrenchOak/total-reclaw/internal/memory"
	"github.com/TheFrenchOak/total-reclaw/internal/models"
)

// MemoryHandler exposes the Recall/Store Facade's five operations
// (spec.md §4.8) plus stats over HTTP. Grounded on the donor's
// internal/api/handlers_memories.go request/response shape, trimmed to
// the facade's narrower surface.
type MemoryHandler struct {
	svc *memory.Service
}

func NewMemoryHandler(svc *memory.Service) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

type recallRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
	Entity string `json:"entity"`
}

// Recall handles POST /recall
func (h *MemoryHandler) Recall(w http.ResponseWriter, r *http.Request) {
	var req recallRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.svc.Recall(req.Query, req.Limit, req.Entity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type storeRequest struct {
	Text       string             `json:"text"`
	Importance float64            `json:"importance"`
	Category   models.Category    `json:"category"`
	Entity     string             `json:"entity"`
	Key        string             `json:"key"`
	Value      string             `json:"value"`
	DecayClass models.DecayClass  `json:"decayClass"`
}

// Store handles POST /store
func (h *MemoryHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	outcome, err := h.svc.Store(req.Text, req.Importance, req.Category, req.Entity, req.Key, req.Value, req.DecayClass)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	status := http.StatusCreated
	if outcome.Action == "duplicate" {
		status = http.StatusOK
	}
	writeJSON(w, status, outcome)
}

type forgetRequest struct {
	MemoryID string `json:"memoryId"`
	Query    string `json:"query"`
}

// Forget handles POST /forget
func (h *MemoryHandler) Forget(w http.ResponseWriter, r *http.Request) {
	var req forgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	deleted, candidates, err := h.svc.Forget(req.MemoryID, req.Query)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted, "candidates": candidates})
}

type checkpointSaveRequest struct {
	Intent          string   `json:"intent"`
	State           string   `json:"state"`
	ExpectedOutcome string   `json:"expectedOutcome"`
	WorkingFiles    []string `json:"workingFiles"`
}

// SaveCheckpoint handles POST /checkpoint
func (h *MemoryHandler) SaveCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req checkpointSaveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := h.svc.SaveCheckpoint(models.CheckpointContext{
		Intent:          req.Intent,
		State:           req.State,
		ExpectedOutcome: req.ExpectedOutcome,
		WorkingFiles:    req.WorkingFiles,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// RestoreCheckpoint handles GET /checkpoint
func (h *MemoryHandler) RestoreCheckpoint(w http.ResponseWriter, r *http.Request) {
	ctx, err := h.svc.RestoreCheckpoint()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ctx == nil {
		writeError(w, http.StatusNotFound, "no checkpoint found")
		return
	}
	writeJSON(w, http.StatusOK, ctx)
}

type pruneRequest struct {
	Mode string `json:"mode"`
}

// Prune handles POST /prune
func (h *MemoryHandler) Prune(w http.ResponseWriter, r *http.Request) {
	var req pruneRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.Prune(memory.PruneMode(req.Mode))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Stats handles GET /stats
func (h *MemoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.svc.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, memory.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, memory.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
