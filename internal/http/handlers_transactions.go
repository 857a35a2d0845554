package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"budget/internal/core"
	"budget/internal/ledger"
	applog "budget/internal/log"
)

// handleListTransactions returns one page of the period's transactions,
// filtered by search, type and category.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	filter := ledger.Filter{
		Period:   p,
		Search:   q.Get("search"),
		Type:     q.Get("type"),
		Category: q.Get("category"),
	}

	page := 1
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}
	pageSize := s.pageSize
	if v := strings.TrimSpace(q.Get("page_size")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pageSize = n
		}
	}

	writeJSON(w, http.StatusOK, ledger.Paginate(s.transactions.Query(filter), page, pageSize))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	added, err := s.transactions.Add(r.Context(), t)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var patch ledger.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := s.transactions.Update(r.Context(), id, patch); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	// An unknown id was a persisted no-op; report what is stored now.
	if updated, ok := s.transactions.Get(id); ok {
		writeJSON(w, http.StatusOK, updated)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.transactions.Remove(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.cachedSummary(p))
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	breakdown := s.cachedBreakdown(p)
	if breakdown == nil {
		breakdown = []core.CategoryAmount{}
	}
	writeJSON(w, http.StatusOK, breakdown)
}

// handleGetSettings returns the opaque settings document, or an empty
// object when nothing was stored yet.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	raw, ok, err := s.kv.Get(r.Context(), SettingsKey)
	if err != nil {
		slog.ErrorContext(r.Context(), "Reading settings failed",
			applog.FieldError, err.Error(),
			applog.FieldStorageKey, SettingsKey,
			applog.FieldComponent, applog.ComponentHTTP)
		writeError(w, http.StatusInternalServerError, "settings unavailable")
		return
	}
	if !ok {
		raw = []byte("{}")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// handlePutSettings stores the settings document verbatim. The payload
// only has to be valid JSON; its shape belongs to the client.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var doc json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "settings must be valid JSON")
		return
	}
	if err := s.kv.Set(r.Context(), SettingsKey, doc); err != nil {
		slog.ErrorContext(r.Context(), "Persisting settings failed",
			applog.FieldError, err.Error(),
			applog.FieldStorageKey, SettingsKey,
			applog.FieldComponent, applog.ComponentHTTP)
		writeError(w, http.StatusInternalServerError, "settings not saved")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
