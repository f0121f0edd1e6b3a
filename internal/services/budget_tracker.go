package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finwatch/internal/category"
	"finwatch/internal/core"

	"github.com/shopspring/decimal"
)

// BudgetTrackerStore is the slice of storage the budget tracker needs.
type BudgetTrackerStore interface {
	GetBudget(ctx context.Context, id string) (core.Budget, error)
	ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
	ExpenseStats(ctx context.Context, q core.ExpenseQuery) (core.ExpenseStats, error)
	SetBudgetCurrentAmount(ctx context.Context, id string, amount decimal.Decimal) (bool, error)
}

// BudgetTracker refreshes the cached consumption of budgets from completed
// expenses of the current period.
type BudgetTracker struct {
	store BudgetTrackerStore
	now   Clock
	loc   *time.Location
	locks *keyedMutex
}

func NewBudgetTracker(store BudgetTrackerStore, now Clock, loc *time.Location) *BudgetTracker {
	if now == nil {
		now = systemClock
	}
	if loc == nil {
		loc = time.UTC
	}
	return &BudgetTracker{
		store: store,
		now:   now,
		loc:   loc,
		locks: newKeyedMutex(),
	}
}

// RecomputeCurrentAmount sums the owner's completed expenses in any of the
// budget category's variants since the start of the current period and
// stores the sum as the budget's current amount.
func (t *BudgetTracker) RecomputeCurrentAmount(ctx context.Context, budgetID string) (core.Budget, error) {
	unlock := t.locks.Lock(budgetID)
	defer unlock()

	b, err := t.store.GetBudget(ctx, budgetID)
	if err != nil {
		return core.Budget{}, err
	}
	return t.recompute(ctx, b)
}

// RecomputeAllForUser refreshes every budget of the user. A budget that
// fails is logged and left out of the result.
func (t *BudgetTracker) RecomputeAllForUser(ctx context.Context, userID string) ([]core.Budget, error) {
	budgets, err := t.store.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	out := make([]core.Budget, 0, len(budgets))
	for _, b := range budgets {
		unlock := t.locks.Lock(b.ID)
		updated, err := t.recompute(ctx, b)
		unlock()
		if err != nil {
			slog.ErrorContext(ctx, "Failed to recompute budget",
				"budget_id", b.ID,
				"user_id", userID,
				"error", err)
			continue
		}
		out = append(out, updated)
	}
	return out, nil
}

// PeriodStart returns the start of the budget's current period.
func (t *BudgetTracker) PeriodStart(b core.Budget) time.Time {
	return core.PeriodStart(b.Period, t.now(), t.loc)
}

func (t *BudgetTracker) recompute(ctx context.Context, b core.Budget) (core.Budget, error) {
	variants := category.Variants(b.Category)
	stats, err := t.store.ExpenseStats(ctx, core.ExpenseQuery{
		UserID:     b.UserID,
		Categories: variants,
		From:       t.PeriodStart(b),
		To:         core.PeriodEnd(b.Period, t.now(), t.loc),
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("sum expenses for budget %s: %w", b.ID, err)
	}

	found, err := t.store.SetBudgetCurrentAmount(ctx, b.ID, stats.Total)
	if err != nil {
		return core.Budget{}, fmt.Errorf("persist budget %s: %w", b.ID, err)
	}
	if !found {
		return core.Budget{}, fmt.Errorf("budget %s: %w", b.ID, core.ErrNotFound)
	}

	slog.DebugContext(ctx, "Budget recomputed",
		"budget_id", b.ID,
		"previous", b.CurrentAmount.StringFixed(2),
		"current", stats.Total.StringFixed(2),
		"variants", variants)

	b.CurrentAmount = stats.Total
	return b, nil
}
