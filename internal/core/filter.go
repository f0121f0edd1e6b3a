package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionFilter narrows a transaction listing. Zero values mean "any".
type TransactionFilter struct {
	UserID    string
	AccountID string
	Type      TransactionType
	Status    TransactionStatus
	Category  string
	From      time.Time
	To        time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Limit     int
	Offset    int
}

// ExpenseQuery selects completed expenses of one user for aggregation.
type ExpenseQuery struct {
	UserID     string
	Categories []string // empty means every category
	From       time.Time
	To         time.Time // exclusive; zero means no upper bound
	ExcludeID  string
}

// ExpenseStats is the SUM/COUNT aggregate over an ExpenseQuery.
type ExpenseStats struct {
	Total decimal.Decimal
	Count int64
}

// Average returns Total/Count, or zero for an empty set.
func (s ExpenseStats) Average() decimal.Decimal {
	if s.Count == 0 {
		return decimal.Zero
	}
	return s.Total.Div(decimal.NewFromInt(s.Count))
}

// NotificationFilter narrows a notification listing. Nil fields mean "any".
type NotificationFilter struct {
	Type   *NotificationType
	IsRead *bool
}

// Page is one page of a listing together with the unpaged total.
type Page[T any] struct {
	Items    []T
	Total    int64
	Page     int
	PageSize int
}
