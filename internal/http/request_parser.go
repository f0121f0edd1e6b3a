package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finwatch/internal/core"

	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderUserID))
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
// Every failure wraps core.ErrValidation.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", core.ErrValidation)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", core.ErrValidation, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must hold a single JSON object", core.ErrValidation)
	}
	return nil
}

// parsePage reads page and page_size. Absent values are zero and the
// services apply their defaults.
func parsePage(q url.Values) (page, pageSize int, err error) {
	if page, err = optionalInt(q, "page"); err != nil {
		return 0, 0, err
	}
	if pageSize, err = optionalInt(q, "page_size"); err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}

func optionalInt(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", core.ErrValidation, key)
	}
	return n, nil
}

func optionalTime(q url.Values, key string) (time.Time, error) {
	raw := q.Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC 3339 or YYYY-MM-DD", core.ErrValidation, key)
	}
	return t, nil
}

func optionalDecimal(q url.Values, key string) (*decimal.Decimal, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	d, err := core.ParseAmount(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &d, nil
}

func parseTransactionFilter(q url.Values) (core.TransactionFilter, error) {
	f := core.TransactionFilter{
		AccountID: q.Get("account_id"),
		Type:      core.TransactionType(strings.ToUpper(q.Get("type"))),
		Status:    core.TransactionStatus(strings.ToUpper(q.Get("status"))),
		Category:  q.Get("category"),
	}
	if f.Type != "" && !f.Type.Valid() {
		return f, fmt.Errorf("%w: unknown transaction type %q", core.ErrValidation, f.Type)
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, fmt.Errorf("%w: unknown transaction status %q", core.ErrValidation, f.Status)
	}

	var err error
	if f.From, err = optionalTime(q, "from"); err != nil {
		return f, err
	}
	if f.To, err = optionalTime(q, "to"); err != nil {
		return f, err
	}
	if f.MinAmount, err = optionalDecimal(q, "min_amount"); err != nil {
		return f, err
	}
	if f.MaxAmount, err = optionalDecimal(q, "max_amount"); err != nil {
		return f, err
	}
	return f, nil
}

func parseNotificationFilter(q url.Values) (core.NotificationFilter, error) {
	var f core.NotificationFilter
	if raw := q.Get("type"); raw != "" {
		typ := core.NotificationType(strings.ToUpper(raw))
		if !typ.Valid() {
			return f, fmt.Errorf("%w: unknown notification type %q", core.ErrValidation, raw)
		}
		f.Type = &typ
	}
	if raw := q.Get("is_read"); raw != "" {
		read, err := strconv.ParseBool(raw)
		if err != nil {
			return f, fmt.Errorf("%w: is_read must be true or false", core.ErrValidation)
		}
		f.IsRead = &read
	}
	return f, nil
}

type accountRequest struct {
	Name              *string           `json:"name"`
	Kind              *core.AccountKind `json:"kind"`
	IsDefault         *bool             `json:"isDefault"`
	BankType          *core.BankType    `json:"bankType"`
	BankAccountNumber *string           `json:"bankAccountNumber"`
}

type transactionRequest struct {
	AccountID         *string                 `json:"accountId"`
	Type              *core.TransactionType   `json:"type"`
	Amount            *decimal.Decimal        `json:"amount"`
	Description       *string                 `json:"description"`
	OccurredAt        *time.Time              `json:"occurredAt"`
	Category          *string                 `json:"category"`
	Status            *core.TransactionStatus `json:"status"`
	IsRecurring       *bool                   `json:"isRecurring"`
	RecurringInterval *core.RecurringInterval `json:"recurringInterval"`
}

type budgetRequest struct {
	Name         *string            `json:"name"`
	Category     *string            `json:"category"`
	Period       *core.BudgetPeriod `json:"period"`
	TargetAmount *decimal.Decimal   `json:"targetAmount"`
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
