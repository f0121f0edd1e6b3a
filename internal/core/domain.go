package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"

	Pending   TransactionStatus = "PENDING"
	Completed TransactionStatus = "COMPLETED"
	Failed    TransactionStatus = "FAILED"

	Daily   RecurringInterval = "DAILY"
	Weekly  RecurringInterval = "WEEKLY"
	Monthly RecurringInterval = "MONTHLY"
	Yearly  RecurringInterval = "YEARLY"

	PeriodMonthly BudgetPeriod = "MONTHLY"
	PeriodWeekly  BudgetPeriod = "WEEKLY"
	PeriodYearly  BudgetPeriod = "YEARLY"
	PeriodCustom  BudgetPeriod = "CUSTOM"

	AccountCurrent    AccountKind = "CURRENT"
	AccountSavings    AccountKind = "SAVINGS"
	AccountCredit     AccountKind = "CREDIT"
	AccountInvestment AccountKind = "INVESTMENT"
	AccountDeposit    AccountKind = "DEPOSIT"
	AccountBusiness   AccountKind = "BUSINESS"

	BudgetLimitWarning      NotificationType = "BUDGET_LIMIT_WARNING"
	BudgetExceeded          NotificationType = "BUDGET_EXCEEDED"
	LowSavings              NotificationType = "LOW_SAVINGS"
	AnomalousTransaction    NotificationType = "ANOMALOUS_TRANSACTION"
	RecurringTransactionDue NotificationType = "RECURRING_TRANSACTION_DUE"
)

type (
	TransactionType   string
	TransactionStatus string
	RecurringInterval string
	BudgetPeriod      string
	AccountKind       string
	BankType          string
	NotificationType  string

	// Account is a user's money container. Balance is owned by the ledger and
	// always equals the signed sum of the account's completed transactions.
	Account struct {
		ID                string
		UserID            string
		Name              string
		Kind              AccountKind
		Balance           decimal.Decimal
		IsDefault         bool
		BankType          BankType // empty when not linked to a bank
		BankAccountNumber string
		CreatedAt         time.Time
		UpdatedAt         time.Time
	}

	Transaction struct {
		ID                string
		UserID            string
		AccountID         string
		Type              TransactionType
		Amount            decimal.Decimal
		Description       string
		OccurredAt        time.Time
		Category          string // free text, see category.Equivalents
		Status            TransactionStatus
		IsRecurring       bool
		RecurringInterval RecurringInterval
		LastProcessedAt   time.Time
		CreatedAt         time.Time
		UpdatedAt         time.Time
	}

	// Budget caps spending on one canonical category per period.
	// CurrentAmount is a cached projection refreshed by the budget tracker.
	Budget struct {
		ID            string
		UserID        string
		Name          string
		Category      string
		Period        BudgetPeriod
		TargetAmount  decimal.Decimal
		CurrentAmount decimal.Decimal
		LastAlertAt   time.Time
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	Notification struct {
		ID        string
		UserID    string
		Type      NotificationType
		Title     string
		Message   string
		IsRead    bool
		Metadata  map[string]any
		SubjectID string // originating entity, empty for user-wide alerts
		CreatedAt time.Time
	}
)

// IsCompleted reports whether the transaction counts toward balances and budgets.
func (t Transaction) IsCompleted() bool {
	return t.Status == Completed
}

// SignedAmount returns the amount as it affects the account balance.
func (t Transaction) SignedAmount() decimal.Decimal {
	switch t.Type {
	case Income:
		return t.Amount
	case Expense:
		return t.Amount.Neg()
	default:
		return decimal.Zero
	}
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case Pending, Completed, Failed:
		return true
	}
	return false
}

func (i RecurringInterval) Valid() bool {
	switch i {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (p BudgetPeriod) Valid() bool {
	switch p {
	case PeriodMonthly, PeriodWeekly, PeriodYearly, PeriodCustom:
		return true
	}
	return false
}

func (k AccountKind) Valid() bool {
	switch k {
	case AccountCurrent, AccountSavings, AccountCredit, AccountInvestment, AccountDeposit, AccountBusiness:
		return true
	}
	return false
}

func (b BankType) Valid() bool {
	switch b {
	case "", "CENTER_BANK", "INVEST", "SBERBANK", "ALFA_BANK", "TBANK":
		return true
	}
	return false
}

func (n NotificationType) Valid() bool {
	switch n {
	case BudgetLimitWarning, BudgetExceeded, LowSavings, AnomalousTransaction, RecurringTransactionDue:
		return true
	}
	return false
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return fmt.Errorf("%w: empty user", ErrValidation)
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: empty account name", ErrValidation)
	}
	if len(a.Name) > 255 {
		return fmt.Errorf("%w: account name too long (max 255 characters)", ErrValidation)
	}
	if !a.Kind.Valid() {
		return fmt.Errorf("%w: invalid account kind %q", ErrValidation, a.Kind)
	}
	if !a.BankType.Valid() {
		return fmt.Errorf("%w: invalid bank type %q", ErrValidation, a.BankType)
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return fmt.Errorf("%w: empty user", ErrValidation)
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return fmt.Errorf("%w: empty account", ErrValidation)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: invalid transaction type %q", ErrValidation, t.Type)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: invalid transaction status %q", ErrValidation, t.Status)
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if t.OccurredAt.IsZero() {
		return fmt.Errorf("%w: transaction date cannot be zero", ErrValidation)
	}
	if len(t.Category) > 255 {
		return fmt.Errorf("%w: category too long (max 255 characters)", ErrValidation)
	}
	if t.IsRecurring && !t.RecurringInterval.Valid() {
		return fmt.Errorf("%w: invalid recurring interval %q", ErrValidation, t.RecurringInterval)
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return fmt.Errorf("%w: empty user", ErrValidation)
	}
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("%w: empty budget name", ErrValidation)
	}
	if strings.TrimSpace(b.Category) == "" {
		return fmt.Errorf("%w: empty budget category", ErrValidation)
	}
	if !b.Period.Valid() {
		return fmt.Errorf("%w: invalid budget period %q", ErrValidation, b.Period)
	}
	if !b.TargetAmount.IsPositive() {
		return fmt.Errorf("%w: target amount must be positive", ErrValidation)
	}
	if err := ValidateAmount(b.TargetAmount); err != nil {
		return err
	}
	return nil
}
