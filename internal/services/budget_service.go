package services

import (
	"context"
	"fmt"
	"strings"

	"finwatch/internal/category"
	"finwatch/internal/core"

	"github.com/shopspring/decimal"
)

type BudgetInput struct {
	Name         string
	Category     string // a code or any of its labels
	Period       core.BudgetPeriod
	TargetAmount decimal.Decimal
}

type BudgetPatch struct {
	Name         *string
	Category     *string
	Period       *core.BudgetPeriod
	TargetAmount *decimal.Decimal
}

// BudgetService manages budgets. Every create or update is followed by a
// recomputation and a limit check.
type BudgetService struct {
	store   Store
	monitor *Monitor
}

func NewBudgetService(store Store, monitor *Monitor) *BudgetService {
	return &BudgetService{store: store, monitor: monitor}
}

func (s *BudgetService) Create(ctx context.Context, userID string, in BudgetInput) (core.Budget, error) {
	b := core.Budget{
		UserID:       userID,
		Name:         strings.TrimSpace(in.Name),
		Period:       in.Period,
		TargetAmount: in.TargetAmount,
	}
	if b.Period == "" {
		b.Period = core.PeriodMonthly
	}
	code, err := budgetCategory(in.Category)
	if err != nil {
		return core.Budget{}, err
	}
	b.Category = code
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	created, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return s.monitor.OnBudgetWritten(ctx, created)
}

func (s *BudgetService) Get(ctx context.Context, userID, id string) (core.Budget, error) {
	b, err := s.store.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	if b.UserID != userID {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	return b, nil
}

func (s *BudgetService) List(ctx context.Context, userID string) ([]core.Budget, error) {
	budgets, err := s.store.ListBudgets(ctx, userID)
	if err != nil {
		return nil, err
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	return budgets, nil
}

func (s *BudgetService) Update(ctx context.Context, userID, id string, p BudgetPatch) (core.Budget, error) {
	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return core.Budget{}, err
	}
	if p.Name != nil {
		b.Name = strings.TrimSpace(*p.Name)
	}
	if p.Category != nil {
		code, err := budgetCategory(*p.Category)
		if err != nil {
			return core.Budget{}, err
		}
		b.Category = code
	}
	if p.Period != nil {
		b.Period = *p.Period
	}
	if p.TargetAmount != nil {
		b.TargetAmount = *p.TargetAmount
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	if err := s.store.UpdateBudget(ctx, b); err != nil {
		return core.Budget{}, err
	}
	return s.monitor.OnBudgetWritten(ctx, b)
}

func (s *BudgetService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.store.DeleteBudget(ctx, id)
}

// budgetCategory resolves a code or legacy label to its canonical code.
func budgetCategory(label string) (string, error) {
	code := category.Canonical(strings.TrimSpace(label))
	if !category.IsCode(code) {
		return "", fmt.Errorf("%w: unknown budget category %q", core.ErrValidation, label)
	}
	return code, nil
}
