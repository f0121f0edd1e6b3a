// Package services holds the ledger consistency and monitoring engine and the
// entity services that drive it.
package services

import (
	"context"
	"time"

	"finwatch/internal/core"

	"github.com/shopspring/decimal"
)

// AccountStore persists accounts and their cached balances.
type AccountStore interface {
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	GetAccount(ctx context.Context, id string) (core.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) error
	DeleteAccount(ctx context.Context, id string) error
	UnsetDefaultAccounts(ctx context.Context, userID string) error
	SetAccountBalance(ctx context.Context, id string, balance decimal.Decimal) (bool, error)
}

// TransactionStore persists transactions and serves the aggregates the
// ledger and the detector recompute from.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, int64, error)
	SumCompletedSigned(ctx context.Context, accountID, excludeID string) (decimal.Decimal, error)
	ExpenseStats(ctx context.Context, q core.ExpenseQuery) (core.ExpenseStats, error)
	ListRecurringTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	SetTransactionLastProcessed(ctx context.Context, id string, at time.Time) error
}

type BudgetStore interface {
	CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	GetBudget(ctx context.Context, id string) (core.Budget, error)
	ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
	UpdateBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, id string) error
	SetBudgetCurrentAmount(ctx context.Context, id string, amount decimal.Decimal) (bool, error)
	SetBudgetLastAlert(ctx context.Context, id string, at time.Time) error
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n core.Notification) (core.Notification, error)
	QueryNotifications(ctx context.Context, userID string, f core.NotificationFilter, limit, offset int) ([]core.Notification, int64, error)
	HasUnreadNotificationSince(ctx context.Context, userID string, typ core.NotificationType, subjectID string, since time.Time) (bool, error)
	MarkNotificationRead(ctx context.Context, id, userID string) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int64, error)
}

// Store is everything the engine needs from durable storage.
// *storage.SQLiteRepository satisfies it.
type Store interface {
	AccountStore
	TransactionStore
	BudgetStore
	NotificationStore
	ListActiveUserIDs(ctx context.Context) ([]string, error)
}

// Clock is the engine's source of current time.
type Clock func() time.Time

func systemClock() time.Time { return time.Now() }
