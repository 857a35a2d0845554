package http

import (
	"encoding/json"
	"net/http"
	"time"

	"budget/internal/goal"
)

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals := s.goals.List()
	if goals == nil {
		goals = []goal.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var g goal.Goal
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	added, err := s.goals.Add(r.Context(), g)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var g goal.Goal
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := s.goals.Update(r.Context(), id, g); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	s.goals.Remove(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleGoalProgress evaluates the period's applicable goals against its
// cached aggregates.
func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary := s.cachedSummary(p)
	agg := goal.Aggregates{
		Income:    summary.Income,
		Expenses:  summary.Expenses,
		Breakdown: s.cachedBreakdown(p),
	}
	writeJSON(w, http.StatusOK, goal.EvaluateAll(s.goals.For(p), p, agg, time.Now()))
}
