package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"finwatch/internal/core"
	"finwatch/internal/log"
	"finwatch/internal/middleware/trace"

	"github.com/shopspring/decimal"
)

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// statusFor maps the core sentinels to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInsufficientFunds):
		return http.StatusConflict
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the mapped status. Internal errors are logged and
// their message is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error(), RequestID: trace.GetRequestID(r.Context())}
	switch status {
	case http.StatusNotFound:
		body.Error = "not found"
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Request failed", err,
			log.ComponentHTTP, r.Method+" "+r.URL.Path,
			log.NewFields().WithUser(userID(r)).WithRequestID(body.RequestID))
		body.Error = http.StatusText(status)
	}
	writeJSON(w, status, body)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

type accountJSON struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Kind              core.AccountKind `json:"kind"`
	Balance           decimal.Decimal  `json:"balance"`
	IsDefault         bool             `json:"isDefault"`
	BankType          core.BankType    `json:"bankType,omitempty"`
	BankAccountNumber string           `json:"bankAccountNumber,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

func toAccountJSON(a core.Account) accountJSON {
	return accountJSON{
		ID:                a.ID,
		Name:              a.Name,
		Kind:              a.Kind,
		Balance:           a.Balance,
		IsDefault:         a.IsDefault,
		BankType:          a.BankType,
		BankAccountNumber: a.BankAccountNumber,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

type transactionJSON struct {
	ID                string                 `json:"id"`
	AccountID         string                 `json:"accountId"`
	Type              core.TransactionType   `json:"type"`
	Amount            decimal.Decimal        `json:"amount"`
	Description       string                 `json:"description,omitempty"`
	OccurredAt        time.Time              `json:"occurredAt"`
	Category          string                 `json:"category,omitempty"`
	Status            core.TransactionStatus `json:"status"`
	IsRecurring       bool                   `json:"isRecurring"`
	RecurringInterval core.RecurringInterval `json:"recurringInterval,omitempty"`
	LastProcessedAt   *time.Time             `json:"lastProcessedAt,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:                t.ID,
		AccountID:         t.AccountID,
		Type:              t.Type,
		Amount:            t.Amount,
		Description:       t.Description,
		OccurredAt:        t.OccurredAt,
		Category:          t.Category,
		Status:            t.Status,
		IsRecurring:       t.IsRecurring,
		RecurringInterval: t.RecurringInterval,
		LastProcessedAt:   timePtr(t.LastProcessedAt),
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

type budgetJSON struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Category      string            `json:"category"`
	Period        core.BudgetPeriod `json:"period"`
	TargetAmount  decimal.Decimal   `json:"targetAmount"`
	CurrentAmount decimal.Decimal   `json:"currentAmount"`
	LastAlertAt   *time.Time        `json:"lastAlertAt,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func toBudgetJSON(b core.Budget) budgetJSON {
	return budgetJSON{
		ID:            b.ID,
		Name:          b.Name,
		Category:      b.Category,
		Period:        b.Period,
		TargetAmount:  b.TargetAmount,
		CurrentAmount: b.CurrentAmount,
		LastAlertAt:   timePtr(b.LastAlertAt),
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

type notificationJSON struct {
	ID        string                `json:"id"`
	Type      core.NotificationType `json:"type"`
	Title     string                `json:"title"`
	Message   string                `json:"message"`
	IsRead    bool                  `json:"isRead"`
	Metadata  map[string]any        `json:"metadata,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
}

func toNotificationJSON(n core.Notification) notificationJSON {
	return notificationJSON{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		IsRead:    n.IsRead,
		Metadata:  n.Metadata,
		CreatedAt: n.CreatedAt,
	}
}

type budgetConsumptionJSON struct {
	budgetJSON
	Percentage  decimal.Decimal `json:"percentage"`
	Remaining   decimal.Decimal `json:"remaining"`
	PeriodStart time.Time       `json:"periodStart"`
}

type summaryJSON struct {
	TotalBalance decimal.Decimal         `json:"totalBalance"`
	Accounts     []accountBalanceJSON    `json:"accounts"`
	Budgets      []budgetConsumptionJSON `json:"budgets"`
	UnreadAlerts int64                   `json:"unreadAlerts"`
}

type accountBalanceJSON struct {
	AccountID string           `json:"accountId"`
	Name      string           `json:"name"`
	Kind      core.AccountKind `json:"kind"`
	Balance   decimal.Decimal  `json:"balance"`
	IsDefault bool             `json:"isDefault"`
}

func toSummaryJSON(s core.Summary) summaryJSON {
	out := summaryJSON{
		TotalBalance: s.TotalBalance,
		Accounts:     make([]accountBalanceJSON, 0, len(s.Accounts)),
		Budgets:      make([]budgetConsumptionJSON, 0, len(s.Budgets)),
		UnreadAlerts: s.UnreadAlerts,
	}
	for _, a := range s.Accounts {
		out.Accounts = append(out.Accounts, accountBalanceJSON(a))
	}
	for _, b := range s.Budgets {
		out.Budgets = append(out.Budgets, budgetConsumptionJSON{
			budgetJSON:  toBudgetJSON(b.Budget),
			Percentage:  b.Percentage,
			Remaining:   b.Remaining,
			PeriodStart: b.PeriodStart,
		})
	}
	return out
}

type pageJSON[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

func toPageJSON[S, T any](p core.Page[S], conv func(S) T) pageJSON[T] {
	items := make([]T, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, conv(it))
	}
	return pageJSON[T]{Items: items, Total: p.Total, Page: p.Page, PageSize: p.PageSize}
}

func mapSlice[S, T any](in []S, conv func(S) T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		out = append(out, conv(v))
	}
	return out
}
