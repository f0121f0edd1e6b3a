package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSignedAmount(t *testing.T) {
	amt := decimal.NewFromInt(250)
	if got := (Transaction{Type: Income, Amount: amt}).SignedAmount(); !got.Equal(amt) {
		t.Fatalf("income signed amount = %s, want 250", got)
	}
	if got := (Transaction{Type: Expense, Amount: amt}).SignedAmount(); !got.Equal(amt.Neg()) {
		t.Fatalf("expense signed amount = %s, want -250", got)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		UserID:     "u1",
		AccountID:  "a1",
		Type:       Expense,
		Amount:     decimal.NewFromInt(100),
		OccurredAt: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		Category:   "GROCERIES",
		Status:     Completed,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	mutate := func(f func(*Transaction)) Transaction {
		tx := good
		f(&tx)
		return tx
	}
	bads := []Transaction{
		mutate(func(tx *Transaction) { tx.UserID = "" }),
		mutate(func(tx *Transaction) { tx.AccountID = "" }),
		mutate(func(tx *Transaction) { tx.Type = "TRANSFER" }),
		mutate(func(tx *Transaction) { tx.Status = "DONE" }),
		mutate(func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-1) }),
		mutate(func(tx *Transaction) { tx.OccurredAt = time.Time{} }),
		mutate(func(tx *Transaction) { tx.IsRecurring = true }),
	}
	for i, tx := range bads {
		err := tx.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected ErrValidation, got %v", i, err)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{
		UserID:       "u1",
		Name:         "Food",
		Category:     "GROCERIES",
		Period:       PeriodMonthly,
		TargetAmount: decimal.NewFromInt(1000),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	zero := good
	zero.TargetAmount = decimal.Zero
	if err := zero.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for zero target, got %v", err)
	}

	badPeriod := good
	badPeriod.Period = "DAILY"
	if err := badPeriod.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for bad period, got %v", err)
	}
}

func TestPeriodStart(t *testing.T) {
	// Wednesday 2025-03-19 15:30 UTC
	now := time.Date(2025, 3, 19, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		period BudgetPeriod
		want   time.Time
	}{
		{"monthly", PeriodMonthly, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"custom tracks month", PeriodCustom, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"weekly starts monday", PeriodWeekly, time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)},
		{"yearly", PeriodYearly, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PeriodStart(tt.period, now, time.UTC)
			if !got.Equal(tt.want) {
				t.Errorf("PeriodStart(%s) = %v, want %v", tt.period, got, tt.want)
			}
		})
	}

	sunday := time.Date(2025, 3, 23, 9, 0, 0, 0, time.UTC)
	if got := PeriodStart(PeriodWeekly, sunday, time.UTC); !got.Equal(time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("weekly start for sunday = %v, want 2025-03-17", got)
	}
}

func TestPeriodEnd(t *testing.T) {
	now := time.Date(2025, 12, 19, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		period BudgetPeriod
		want   time.Time
	}{
		{PeriodMonthly, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodCustom, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodWeekly, time.Date(2025, 12, 22, 0, 0, 0, 0, time.UTC)},
		{PeriodYearly, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := PeriodEnd(tt.period, now, time.UTC); !got.Equal(tt.want) {
			t.Errorf("PeriodEnd(%s) = %v, want %v", tt.period, got, tt.want)
		}
	}
}

func TestUsagePercent(t *testing.T) {
	if got := UsagePercent(decimal.NewFromInt(850), decimal.NewFromInt(1000)); !got.Equal(decimal.NewFromInt(85)) {
		t.Fatalf("UsagePercent = %s, want 85", got)
	}
	if got := UsagePercent(decimal.NewFromInt(10), decimal.Zero); !got.IsZero() {
		t.Fatalf("UsagePercent with zero target = %s, want 0", got)
	}
}
