package services

import (
	"context"
	"fmt"
	"log/slog"

	"finwatch/internal/core"

	"github.com/shopspring/decimal"
)

// LedgerStore is the slice of storage the ledger reads and writes.
type LedgerStore interface {
	SumCompletedSigned(ctx context.Context, accountID, excludeID string) (decimal.Decimal, error)
	SetAccountBalance(ctx context.Context, id string, balance decimal.Decimal) (bool, error)
}

// Ledger keeps every account balance equal to the signed sum of the
// account's completed transactions. Balances are always recomputed in full,
// never adjusted incrementally.
//
// Writers hold Lock for the affected accounts across validate, persist and
// recompute. Ledger methods themselves never take the lock.
type Ledger struct {
	store LedgerStore
	locks *keyedMutex
}

func NewLedger(store LedgerStore) *Ledger {
	return &Ledger{
		store: store,
		locks: newKeyedMutex(),
	}
}

// Lock serializes writers on the given accounts. Empty and repeated ids are
// ignored; ids are locked in sorted order.
func (l *Ledger) Lock(accountIDs ...string) (unlock func()) {
	return l.locks.Lock(accountIDs...)
}

// ApplyTransactionWrite recomputes the balances touched by a transaction
// create, update or delete. tx is nil for a delete and prior is nil for a
// create. Nothing happens unless the transaction is or was completed.
func (l *Ledger) ApplyTransactionWrite(ctx context.Context, tx, prior *core.Transaction) error {
	var (
		accounts  []string
		completed bool
	)
	if tx != nil {
		accounts = append(accounts, tx.AccountID)
		completed = completed || tx.IsCompleted()
	}
	if prior != nil {
		if tx == nil || prior.AccountID != tx.AccountID {
			accounts = append(accounts, prior.AccountID)
		}
		completed = completed || prior.IsCompleted()
	}
	if !completed {
		return nil
	}

	for _, id := range accounts {
		if id == "" {
			continue
		}
		if _, err := l.RecomputeBalance(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// ValidateNonNegative reports core.ErrInsufficientFunds when committing
// hypothetical would leave the account below zero. excludeID names the
// stored version being replaced, if any.
func (l *Ledger) ValidateNonNegative(ctx context.Context, accountID string, hypothetical core.Transaction, excludeID string) error {
	balance, err := l.store.SumCompletedSigned(ctx, accountID, excludeID)
	if err != nil {
		return fmt.Errorf("sum account %s: %w", accountID, err)
	}
	if hypothetical.IsCompleted() {
		balance = balance.Add(hypothetical.SignedAmount())
	}
	if balance.IsNegative() {
		return fmt.Errorf("account %s would reach %s: %w", accountID, core.FormatAmount(balance), core.ErrInsufficientFunds)
	}
	return nil
}

// RecomputeBalance sums the account's completed transactions and persists
// the result. An account deleted in the meantime is not an error.
func (l *Ledger) RecomputeBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	balance, err := l.store.SumCompletedSigned(ctx, accountID, "")
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum account %s: %w", accountID, err)
	}

	found, err := l.store.SetAccountBalance(ctx, accountID, balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("persist balance for account %s: %w", accountID, err)
	}
	if !found {
		slog.DebugContext(ctx, "Skipping balance recompute for missing account", "account_id", accountID)
		return decimal.Zero, nil
	}

	slog.DebugContext(ctx, "Account balance recomputed",
		"account_id", accountID,
		"balance", balance.StringFixed(2))
	return balance, nil
}
