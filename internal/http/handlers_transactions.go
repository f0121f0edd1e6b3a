package http

import (
	"net/http"

	"finwatch/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseTransactionFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, pageSize, err := parsePage(q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.svc.Transactions.List(r.Context(), userID(r), filter, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageJSON(result, toTransactionJSON))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	uid := userID(r)
	tx, err := s.svc.Transactions.Create(r.Context(), uid, services.TransactionInput{
		AccountID:         deref(req.AccountID),
		Type:              deref(req.Type),
		Amount:            deref(req.Amount),
		Description:       deref(req.Description),
		OccurredAt:        deref(req.OccurredAt),
		Category:          deref(req.Category),
		Status:            deref(req.Status),
		IsRecurring:       deref(req.IsRecurring),
		RecurringInterval: deref(req.RecurringInterval),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummary(uid)
	writeJSON(w, http.StatusCreated, toTransactionJSON(tx))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.Transactions.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionJSON(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	uid := userID(r)
	tx, err := s.svc.Transactions.Update(r.Context(), uid, r.PathValue("id"), services.TransactionPatch{
		AccountID:         req.AccountID,
		Type:              req.Type,
		Amount:            req.Amount,
		Description:       req.Description,
		OccurredAt:        req.OccurredAt,
		Category:          req.Category,
		Status:            req.Status,
		IsRecurring:       req.IsRecurring,
		RecurringInterval: req.RecurringInterval,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummary(uid)
	writeJSON(w, http.StatusOK, toTransactionJSON(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if err := s.svc.Transactions.Delete(r.Context(), uid, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummary(uid)
	w.WriteHeader(http.StatusNoContent)
}
