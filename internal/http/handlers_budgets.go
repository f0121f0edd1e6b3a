package http

import (
	"net/http"

	"finwatch/internal/services"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.svc.Budgets.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(budgets, toBudgetJSON))
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	uid := userID(r)
	b, err := s.svc.Budgets.Create(r.Context(), uid, services.BudgetInput{
		Name:         deref(req.Name),
		Category:     deref(req.Category),
		Period:       deref(req.Period),
		TargetAmount: deref(req.TargetAmount),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummary(uid)
	writeJSON(w, http.StatusCreated, toBudgetJSON(b))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Budgets.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetJSON(b))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	uid := userID(r)
	b, err := s.svc.Budgets.Update(r.Context(), uid, r.PathValue("id"), services.BudgetPatch{
		Name:         req.Name,
		Category:     req.Category,
		Period:       req.Period,
		TargetAmount: req.TargetAmount,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummary(uid)
	writeJSON(w, http.StatusOK, toBudgetJSON(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if err := s.svc.Budgets.Delete(r.Context(), uid, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummary(uid)
	w.WriteHeader(http.StatusNoContent)
}
