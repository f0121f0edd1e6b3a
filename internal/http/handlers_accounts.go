package http

import (
	"net/http"

	"finwatch/internal/services"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.Accounts.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(accounts, toAccountJSON))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	uid := userID(r)
	a, err := s.svc.Accounts.Create(r.Context(), uid, services.AccountInput{
		Name:              deref(req.Name),
		Kind:              deref(req.Kind),
		IsDefault:         deref(req.IsDefault),
		BankType:          deref(req.BankType),
		BankAccountNumber: deref(req.BankAccountNumber),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummary(uid)
	writeJSON(w, http.StatusCreated, toAccountJSON(a))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Accounts.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountJSON(a))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	uid := userID(r)
	a, err := s.svc.Accounts.Update(r.Context(), uid, r.PathValue("id"), services.AccountPatch{
		Name:              req.Name,
		Kind:              req.Kind,
		IsDefault:         req.IsDefault,
		BankType:          req.BankType,
		BankAccountNumber: req.BankAccountNumber,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummary(uid)
	writeJSON(w, http.StatusOK, toAccountJSON(a))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if err := s.svc.Accounts.Delete(r.Context(), uid, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummary(uid)
	w.WriteHeader(http.StatusNoContent)
}

// handleRecomputeAccount rebuilds the balance from the completed transactions.
func (s *Server) handleRecomputeAccount(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id := r.PathValue("id")
	if _, err := s.svc.Accounts.Get(r.Context(), uid, id); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.svc.Accounts.RecomputeBalance(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummary(uid)
	writeJSON(w, http.StatusOK, toAccountJSON(a))
}
