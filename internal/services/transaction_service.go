package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finwatch/internal/core"

	"github.com/shopspring/decimal"
)

// TransactionInput carries the fields of a new transaction.
type TransactionInput struct {
	AccountID         string
	Type              core.TransactionType
	Amount            decimal.Decimal
	Description       string
	OccurredAt        time.Time // defaults to now
	Category          string
	Status            core.TransactionStatus // defaults to PENDING
	IsRecurring       bool
	RecurringInterval core.RecurringInterval
}

// TransactionPatch carries a partial update. Nil fields are left unchanged.
type TransactionPatch struct {
	AccountID         *string
	Type              *core.TransactionType
	Amount            *decimal.Decimal
	Description       *string
	OccurredAt        *time.Time
	Category          *string
	Status            *core.TransactionStatus
	IsRecurring       *bool
	RecurringInterval *core.RecurringInterval
}

// TransactionService validates and persists transaction writes and keeps the
// ledger consistent with them.
type TransactionService struct {
	store   Store
	monitor *Monitor
}

func NewTransactionService(store Store, monitor *Monitor) *TransactionService {
	return &TransactionService{store: store, monitor: monitor}
}

// Create records a transaction on one of the user's accounts. A completed
// transaction that would overdraw the account is rejected with
// core.ErrInsufficientFunds and nothing is stored.
func (s *TransactionService) Create(ctx context.Context, userID string, in TransactionInput) (core.Transaction, error) {
	if _, err := s.ownedAccount(ctx, userID, in.AccountID); err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		UserID:            userID,
		AccountID:         in.AccountID,
		Type:              in.Type,
		Amount:            in.Amount,
		Description:       strings.TrimSpace(in.Description),
		OccurredAt:        in.OccurredAt,
		Category:          strings.TrimSpace(in.Category),
		Status:            in.Status,
		IsRecurring:       in.IsRecurring,
		RecurringInterval: in.RecurringInterval,
	}
	if tx.Status == "" {
		tx.Status = core.Pending
	}
	if tx.OccurredAt.IsZero() {
		tx.OccurredAt = s.monitor.Now()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	unlock := s.monitor.Ledger().Lock(tx.AccountID)
	defer unlock()

	if tx.IsCompleted() {
		if err := s.monitor.Ledger().ValidateNonNegative(ctx, tx.AccountID, tx, ""); err != nil {
			return core.Transaction{}, err
		}
	}

	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.afterWrite(ctx, &created, nil)
	return created, nil
}

// Update applies a patch to one of the user's transactions. Moving it to
// another account locks and recomputes both accounts.
func (s *TransactionService) Update(ctx context.Context, userID, id string, patch TransactionPatch) (core.Transaction, error) {
	if patch.AccountID != nil {
		if _, err := s.ownedAccount(ctx, userID, *patch.AccountID); err != nil {
			return core.Transaction{}, err
		}
	}

	prior, unlock, err := s.lockTransaction(ctx, userID, id, patch.AccountID)
	if err != nil {
		return core.Transaction{}, err
	}
	defer unlock()

	next := prior
	applyPatch(&next, patch)
	if err := next.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if next.IsCompleted() {
		if err := s.monitor.Ledger().ValidateNonNegative(ctx, next.AccountID, next, next.ID); err != nil {
			return core.Transaction{}, err
		}
	}

	if err := s.store.UpdateTransaction(ctx, next); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	updated, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	s.afterWrite(ctx, &updated, &prior)
	return updated, nil
}

// Delete removes one of the user's transactions and recomputes its account.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	prior, unlock, err := s.lockTransaction(ctx, userID, id, nil)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.afterWrite(ctx, nil, &prior)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if tx.UserID != userID {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return tx, nil
}

// List returns one page of the user's transactions. Page numbers start at 1.
func (s *TransactionService) List(ctx context.Context, userID string, f core.TransactionFilter, page, pageSize int) (core.Page[core.Transaction], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	f.UserID = userID
	f.Limit = pageSize
	f.Offset = (page - 1) * pageSize

	items, total, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return core.Page[core.Transaction]{}, err
	}
	if items == nil {
		items = []core.Transaction{}
	}
	return core.Page[core.Transaction]{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// afterWrite runs the engine hooks once the write is stored. The write is
// already durable, so a failed recompute is logged and heals on the next one.
func (s *TransactionService) afterWrite(ctx context.Context, tx, prior *core.Transaction) {
	if err := s.monitor.OnTransactionWritten(ctx, tx, prior); err != nil {
		slog.ErrorContext(ctx, "Post-write ledger update failed", "error", err)
	}
}

func (s *TransactionService) ownedAccount(ctx context.Context, userID, accountID string) (core.Account, error) {
	a, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return core.Account{}, err
	}
	if a.UserID != userID {
		return core.Account{}, fmt.Errorf("account %s: %w", accountID, core.ErrNotFound)
	}
	return a, nil
}

// lockTransaction locks the transaction's current account (and target, if
// any) and returns the transaction as read under that lock. It retries when a
// concurrent writer moved the transaction in between.
func (s *TransactionService) lockTransaction(ctx context.Context, userID, id string, target *string) (core.Transaction, func(), error) {
	const attempts = 3
	for i := 0; i < attempts; i++ {
		seen, err := s.Get(ctx, userID, id)
		if err != nil {
			return core.Transaction{}, nil, err
		}

		keys := []string{seen.AccountID}
		if target != nil {
			keys = append(keys, *target)
		}
		unlock := s.monitor.Ledger().Lock(keys...)

		current, err := s.Get(ctx, userID, id)
		if err != nil {
			unlock()
			return core.Transaction{}, nil, err
		}
		if current.AccountID == seen.AccountID {
			return current, unlock, nil
		}
		unlock()
	}
	return core.Transaction{}, nil, errors.New("transaction kept moving between accounts")
}

func applyPatch(t *core.Transaction, p TransactionPatch) {
	if p.AccountID != nil {
		t.AccountID = *p.AccountID
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.OccurredAt != nil {
		t.OccurredAt = *p.OccurredAt
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.IsRecurring != nil {
		t.IsRecurring = *p.IsRecurring
	}
	if p.RecurringInterval != nil {
		t.RecurringInterval = *p.RecurringInterval
	}
}
