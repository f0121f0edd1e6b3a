package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finwatch/internal/core"
)

// RecurringStore is the slice of storage the recurring processor needs.
type RecurringStore interface {
	ListRecurringTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	SetTransactionLastProcessed(ctx context.Context, id string, at time.Time) error
}

// RecurringProcessor reminds users of recurring transactions that fell due.
// It never posts transactions itself: a posting could be rejected for
// insufficient funds, so the user confirms each occurrence.
type RecurringProcessor struct {
	store         RecurringStore
	notifications *Notifications
	loc           *time.Location
}

func NewRecurringProcessor(store RecurringStore, notifications *Notifications, loc *time.Location) *RecurringProcessor {
	if loc == nil {
		loc = time.UTC
	}
	return &RecurringProcessor{
		store:         store,
		notifications: notifications,
		loc:           loc,
	}
}

// ProcessDue emits a RECURRING_TRANSACTION_DUE notification for every due
// recurring transaction of the user and returns how many were emitted.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, userID string, now time.Time) (int, error) {
	templates, err := p.store.ListRecurringTransactions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list recurring transactions: %w", err)
	}

	now = now.In(p.loc)
	var (
		processed int
		errs      []error
	)
	for _, t := range templates {
		checker, err := GetDuenessChecker(t.RecurringInterval)
		if err != nil {
			slog.WarnContext(ctx, "Skipping recurring transaction",
				"transaction_id", t.ID,
				"error", err)
			continue
		}

		// The template itself is the first occurrence.
		last := t.LastProcessedAt
		if last.IsZero() {
			last = t.OccurredAt
		}
		if !checker.IsDue(last.In(p.loc), now, t.OccurredAt.In(p.loc)) {
			continue
		}

		_, err = p.notifications.Create(ctx, core.Notification{
			UserID:    t.UserID,
			Type:      core.RecurringTransactionDue,
			SubjectID: t.ID,
			Title:     fmt.Sprintf("Recurring %s due", lowerType(t.Type)),
			Message: fmt.Sprintf("%s of %s (%s) is due again.",
				describe(t), core.FormatAmount(t.Amount), t.RecurringInterval),
			Metadata: map[string]any{
				"transactionId": t.ID,
				"accountId":     t.AccountID,
				"amount":        core.FormatAmount(t.Amount),
				"interval":      string(t.RecurringInterval),
				"category":      t.Category,
			},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("remind %s: %w", t.ID, err))
			continue
		}

		if err := p.store.SetTransactionLastProcessed(ctx, t.ID, now); err != nil {
			// The reminder exists; a stale cursor only risks one repeat.
			slog.ErrorContext(ctx, "Failed to update last processed time",
				"transaction_id", t.ID,
				"error", err)
		}

		processed++
		slog.InfoContext(ctx, "Recurring transaction reminder created",
			"transaction_id", t.ID,
			"user_id", userID,
			"interval", t.RecurringInterval)
	}

	return processed, errors.Join(errs...)
}

func lowerType(t core.TransactionType) string {
	if t == core.Income {
		return "income"
	}
	return "expense"
}

func describe(t core.Transaction) string {
	if t.Description != "" {
		return fmt.Sprintf("%q", t.Description)
	}
	if t.Category != "" {
		return fmt.Sprintf("%q", t.Category)
	}
	return "Recurring " + lowerType(t.Type)
}
