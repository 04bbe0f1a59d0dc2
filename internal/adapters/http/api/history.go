package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/pulse/internal/domain/model"
)

// HistoryDependencies defines the interface for reading stored entries.
type HistoryDependencies interface {
	History(ctx context.Context, userID string, limit int) ([]model.PulseEntry, error)
	Entry(ctx context.Context, id string) (model.PulseEntry, error)
}

// HistoryHandler handles pulse history requests.
type HistoryHandler struct {
	deps     HistoryDependencies
	maxLimit int
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies, maxLimit int) *HistoryHandler {
	return &HistoryHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetHistory handles GET /pulse/history?user_id=U&limit=N requests.
// Without user_id it lists anonymous entries.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit, err := parseLimit(r, min(defaultHistoryLimit, h.maxLimit), h.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))

	entries, err := h.deps.History(r.Context(), userID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if entries == nil {
		entries = []model.PulseEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGetEntry handles GET /pulse/entries/{id} requests.
func (h *HistoryHandler) HandleGetEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/pulse/entries/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	entry, err := h.deps.Entry(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
