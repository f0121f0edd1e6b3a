package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountBalance is the read model served to API callers.
type AccountBalance struct {
	AccountID string
	Name      string
	Kind      AccountKind
	Balance   decimal.Decimal
	IsDefault bool
}

// BudgetConsumption is a budget together with how much of its target is used.
type BudgetConsumption struct {
	Budget      Budget
	Percentage  decimal.Decimal // CurrentAmount / TargetAmount * 100, 0 when target is 0
	Remaining   decimal.Decimal
	PeriodStart time.Time
}

// UsagePercent returns current/target*100, or zero when the target is zero.
func UsagePercent(current, target decimal.Decimal) decimal.Decimal {
	if target.IsZero() {
		return decimal.Zero
	}
	return current.Div(target).Mul(decimal.NewFromInt(100))
}

// Summary is a compact view of a user's money position.
type Summary struct {
	TotalBalance decimal.Decimal
	Accounts     []AccountBalance
	Budgets      []BudgetConsumption
	UnreadAlerts int64
}
