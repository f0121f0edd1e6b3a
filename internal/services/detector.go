package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finwatch/internal/category"
	"finwatch/internal/core"

	"github.com/shopspring/decimal"
)

// DetectorConfig holds the alert thresholds and windows.
type DetectorConfig struct {
	WarningPercent        decimal.Decimal
	ExceededPercent       decimal.Decimal
	BudgetAlertWindow     time.Duration
	CushionAlertWindow    time.Duration
	CushionMonths         int64
	CushionFloor          decimal.Decimal
	ExpenseLookbackMonths int
	AnomalyLookbackMonths int
	LargeAmountMultiplier decimal.Decimal
	UnusualHourStart      int // inclusive, local time
	UnusualHourEnd        int // exclusive
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		WarningPercent:        decimal.NewFromInt(80),
		ExceededPercent:       decimal.NewFromInt(100),
		BudgetAlertWindow:     24 * time.Hour,
		CushionAlertWindow:    7 * 24 * time.Hour,
		CushionMonths:         3,
		CushionFloor:          decimal.NewFromInt(50000),
		ExpenseLookbackMonths: 6,
		AnomalyLookbackMonths: 3,
		LargeAmountMultiplier: decimal.NewFromInt(3),
		UnusualHourStart:      0,
		UnusualHourEnd:        6,
	}
}

// withDefaults fills the fields whose zero value would be unusable. A zero
// CushionFloor is kept: it means the cushion is driven by spending alone.
func (c DetectorConfig) withDefaults() DetectorConfig {
	def := DefaultDetectorConfig()
	if c.WarningPercent.IsZero() {
		c.WarningPercent = def.WarningPercent
	}
	if c.ExceededPercent.IsZero() {
		c.ExceededPercent = def.ExceededPercent
	}
	if c.BudgetAlertWindow <= 0 {
		c.BudgetAlertWindow = def.BudgetAlertWindow
	}
	if c.CushionAlertWindow <= 0 {
		c.CushionAlertWindow = def.CushionAlertWindow
	}
	if c.CushionMonths < 1 {
		c.CushionMonths = def.CushionMonths
	}
	if c.ExpenseLookbackMonths < 1 {
		c.ExpenseLookbackMonths = def.ExpenseLookbackMonths
	}
	if c.AnomalyLookbackMonths < 1 {
		c.AnomalyLookbackMonths = def.AnomalyLookbackMonths
	}
	if c.LargeAmountMultiplier.IsZero() {
		c.LargeAmountMultiplier = def.LargeAmountMultiplier
	}
	if c.UnusualHourStart == 0 && c.UnusualHourEnd == 0 {
		c.UnusualHourEnd = def.UnusualHourEnd
	}
	return c
}

// DetectorStore is the slice of storage the detector reads.
type DetectorStore interface {
	ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	ExpenseStats(ctx context.Context, q core.ExpenseQuery) (core.ExpenseStats, error)
	HasUnreadNotificationSince(ctx context.Context, userID string, typ core.NotificationType, subjectID string, since time.Time) (bool, error)
	SetBudgetLastAlert(ctx context.Context, id string, at time.Time) error
}

// Detector evaluates budget, cushion and per-transaction rules and records
// the resulting notifications. Every check is guarded on its own: a failing
// check is logged and its siblings still run.
type Detector struct {
	store         DetectorStore
	notifications *Notifications
	cfg           DetectorConfig
	now           Clock
	loc           *time.Location
}

func NewDetector(store DetectorStore, notifications *Notifications, cfg DetectorConfig, now Clock, loc *time.Location) *Detector {
	if now == nil {
		now = systemClock
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Detector{
		store:         store,
		notifications: notifications,
		cfg:           cfg.withDefaults(),
		now:           now,
		loc:           loc,
	}
}

// CheckBudgetLimit emits BUDGET_LIMIT_WARNING or BUDGET_EXCEEDED for a budget
// whose current amount crossed the thresholds, at most once per kind and
// budget within the alert window.
func (d *Detector) CheckBudgetLimit(ctx context.Context, b core.Budget) ([]core.Notification, error) {
	pct := core.UsagePercent(b.CurrentAmount, b.TargetAmount)

	var (
		out  []core.Notification
		errs []error
	)
	emit := func(n core.Notification) {
		created, ok, err := d.emitOnce(ctx, n, d.cfg.BudgetAlertWindow)
		if err != nil {
			errs = append(errs, err)
			slog.ErrorContext(ctx, "Budget limit check failed",
				"budget_id", b.ID,
				"notification_type", n.Type,
				"error", err)
			return
		}
		if ok {
			out = append(out, created)
		}
	}

	if pct.GreaterThanOrEqual(d.cfg.WarningPercent) && pct.LessThan(d.cfg.ExceededPercent) {
		remaining := b.TargetAmount.Sub(b.CurrentAmount)
		emit(core.Notification{
			UserID:    b.UserID,
			Type:      core.BudgetLimitWarning,
			SubjectID: b.ID,
			Title:     fmt.Sprintf("Approaching budget limit: %s", b.Name),
			Message: fmt.Sprintf("You have spent %s%% of budget %q. %s left.",
				pct.StringFixed(0), b.Name, core.FormatAmount(remaining)),
			Metadata: map[string]any{
				"budgetId":   b.ID,
				"category":   b.Category,
				"spent":      core.FormatAmount(b.CurrentAmount),
				"limit":      core.FormatAmount(b.TargetAmount),
				"percentage": pct.StringFixed(2),
			},
		})
	}

	if pct.GreaterThanOrEqual(d.cfg.ExceededPercent) {
		over := b.CurrentAmount.Sub(b.TargetAmount)
		emit(core.Notification{
			UserID:    b.UserID,
			Type:      core.BudgetExceeded,
			SubjectID: b.ID,
			Title:     fmt.Sprintf("Budget exceeded: %s", b.Name),
			Message:   fmt.Sprintf("Budget %q is over by %s.", b.Name, core.FormatAmount(over)),
			Metadata: map[string]any{
				"budgetId": b.ID,
				"category": b.Category,
				"spent":    core.FormatAmount(b.CurrentAmount),
				"limit":    core.FormatAmount(b.TargetAmount),
				"exceeded": core.FormatAmount(over),
			},
		})
	}

	if len(out) > 0 {
		if err := d.store.SetBudgetLastAlert(ctx, b.ID, d.now()); err != nil {
			slog.WarnContext(ctx, "Failed to stamp budget alert time", "budget_id", b.ID, "error", err)
		}
	}
	return out, errors.Join(errs...)
}

// CheckBudgetLimits runs CheckBudgetLimit over the user's stored budgets
// without recomputing them first.
func (d *Detector) CheckBudgetLimits(ctx context.Context, userID string) ([]core.Notification, error) {
	budgets, err := d.store.ListBudgets(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list budgets for limit check", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	var (
		out  []core.Notification
		errs []error
	)
	for _, b := range budgets {
		created, err := d.CheckBudgetLimit(ctx, b)
		out = append(out, created...)
		if err != nil {
			errs = append(errs, fmt.Errorf("budget %s: %w", b.ID, err))
		}
	}
	return out, errors.Join(errs...)
}

// CheckCashCushion emits LOW_SAVINGS when the user's total balance is below
// max(CushionMonths * average monthly expense, CushionFloor). It returns nil
// when nothing was emitted.
func (d *Detector) CheckCashCushion(ctx context.Context, userID string) (*core.Notification, error) {
	accounts, err := d.store.ListAccounts(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Cash cushion check failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}

	months := d.cfg.ExpenseLookbackMonths
	stats, err := d.store.ExpenseStats(ctx, core.ExpenseQuery{
		UserID: userID,
		From:   d.now().AddDate(0, -months, 0),
		To:     d.windowEnd(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "Cash cushion check failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("aggregate expenses: %w", err)
	}
	avgMonthly := stats.Total.Div(decimal.NewFromInt(int64(months)))
	threshold := decimal.Max(avgMonthly.Mul(decimal.NewFromInt(d.cfg.CushionMonths)), d.cfg.CushionFloor)

	if !total.LessThan(threshold) {
		return nil, nil
	}

	created, ok, err := d.emitOnce(ctx, core.Notification{
		UserID: userID,
		Type:   core.LowSavings,
		Title:  "Low savings cushion",
		Message: fmt.Sprintf("Your savings cushion is %s, below the recommended minimum of %s.",
			core.FormatAmount(total), core.FormatAmount(threshold)),
		Metadata: map[string]any{
			"totalBalance":  core.FormatAmount(total),
			"threshold":     core.FormatAmount(threshold),
			"accountsCount": len(accounts),
		},
	}, d.cfg.CushionAlertWindow)
	if err != nil {
		slog.ErrorContext(ctx, "Cash cushion check failed", "user_id", userID, "error", err)
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &created, nil
}

// CheckTransaction runs the large amount, unusual time and new category rules
// against a completed expense. Other transactions are ignored. Anomaly
// alerts are not deduplicated: each refers to its own transaction.
func (d *Detector) CheckTransaction(ctx context.Context, tx core.Transaction) ([]core.Notification, error) {
	if tx.Type != core.Expense || !tx.IsCompleted() {
		return nil, nil
	}

	rules := []struct {
		name  string
		check func(context.Context, core.Transaction) (*core.Notification, error)
	}{
		{"large_amount", d.checkLargeAmount},
		{"unusual_time", d.checkUnusualTime},
		{"new_category", d.checkNewCategory},
	}

	var (
		out  []core.Notification
		errs []error
	)
	for _, r := range rules {
		n, err := r.check(ctx, tx)
		if err != nil {
			slog.ErrorContext(ctx, "Anomaly check failed",
				"rule", r.name,
				"transaction_id", tx.ID,
				"error", err)
			errs = append(errs, fmt.Errorf("%s: %w", r.name, err))
			continue
		}
		if n == nil {
			continue
		}
		created, err := d.notifications.Create(ctx, *n)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to record anomaly", "rule", r.name, "transaction_id", tx.ID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", r.name, err))
			continue
		}
		out = append(out, created)
	}

	if len(out) > 0 {
		slog.InfoContext(ctx, "Anomalous transaction detected",
			"transaction_id", tx.ID,
			"user_id", tx.UserID,
			"alerts", len(out))
	}
	return out, errors.Join(errs...)
}

// CheckAllConditions runs the budget limit checks and then the cash cushion
// check for the user. Both always run.
func (d *Detector) CheckAllConditions(ctx context.Context, userID string) ([]core.Notification, error) {
	out, budgetErr := d.CheckBudgetLimits(ctx, userID)

	n, cushionErr := d.CheckCashCushion(ctx, userID)
	if n != nil {
		out = append(out, *n)
	}
	return out, errors.Join(budgetErr, cushionErr)
}

func (d *Detector) anomalyLookback() time.Time {
	return d.now().AddDate(0, -d.cfg.AnomalyLookbackMonths, 0)
}

// windowEnd bounds the trailing windows so that future-dated expenses are
// ignored. Expenses dated exactly now still count at millisecond precision.
func (d *Detector) windowEnd() time.Time {
	return d.now().Add(time.Millisecond)
}

func (d *Detector) categoryHistory(ctx context.Context, tx core.Transaction) (core.ExpenseStats, error) {
	return d.store.ExpenseStats(ctx, core.ExpenseQuery{
		UserID:     tx.UserID,
		Categories: category.Equivalents(tx.Category),
		From:       d.anomalyLookback(),
		To:         d.windowEnd(),
		ExcludeID:  tx.ID,
	})
}

func (d *Detector) checkLargeAmount(ctx context.Context, tx core.Transaction) (*core.Notification, error) {
	if tx.Category == "" {
		return nil, nil
	}
	stats, err := d.categoryHistory(ctx, tx)
	if err != nil {
		return nil, err
	}
	avg := stats.Average()
	if !avg.IsPositive() || !tx.Amount.GreaterThan(avg.Mul(d.cfg.LargeAmountMultiplier)) {
		return nil, nil
	}
	return &core.Notification{
		UserID:    tx.UserID,
		Type:      core.AnomalousTransaction,
		SubjectID: tx.ID,
		Title:     "Unusually large transaction",
		Message: fmt.Sprintf("Transaction of %s in category %q is well above your usual spending (average %s).",
			core.FormatAmount(tx.Amount), tx.Category, core.FormatAmount(avg)),
		Metadata: map[string]any{
			"transactionId": tx.ID,
			"rule":          "large_amount",
			"amount":        core.FormatAmount(tx.Amount),
			"category":      tx.Category,
			"avgAmount":     avg.StringFixed(2),
		},
	}, nil
}

func (d *Detector) checkUnusualTime(_ context.Context, tx core.Transaction) (*core.Notification, error) {
	hour := tx.OccurredAt.In(d.loc).Hour()
	if hour < d.cfg.UnusualHourStart || hour >= d.cfg.UnusualHourEnd {
		return nil, nil
	}
	return &core.Notification{
		UserID:    tx.UserID,
		Type:      core.AnomalousTransaction,
		SubjectID: tx.ID,
		Title:     "Transaction at an unusual time",
		Message: fmt.Sprintf("Transaction of %s at %d:00 is unusual for your spending.",
			core.FormatAmount(tx.Amount), hour),
		Metadata: map[string]any{
			"transactionId": tx.ID,
			"rule":          "unusual_time",
			"amount":        core.FormatAmount(tx.Amount),
			"time":          hour,
			"date":          tx.OccurredAt.UTC().Format(time.RFC3339),
		},
	}, nil
}

func (d *Detector) checkNewCategory(ctx context.Context, tx core.Transaction) (*core.Notification, error) {
	if tx.Category == "" {
		return nil, nil
	}
	stats, err := d.categoryHistory(ctx, tx)
	if err != nil {
		return nil, err
	}
	if stats.Count > 0 {
		return nil, nil
	}
	return &core.Notification{
		UserID:    tx.UserID,
		Type:      core.AnomalousTransaction,
		SubjectID: tx.ID,
		Title:     "New spending category",
		Message: fmt.Sprintf("Transaction in category %q, where you have not spent in the last %d months.",
			tx.Category, d.cfg.AnomalyLookbackMonths),
		Metadata: map[string]any{
			"transactionId": tx.ID,
			"rule":          "new_category",
			"category":      tx.Category,
			"amount":        core.FormatAmount(tx.Amount),
		},
	}, nil
}

// emitOnce creates n unless an unread notification of the same type and
// subject exists within window. ok is false when the alert was suppressed.
func (d *Detector) emitOnce(ctx context.Context, n core.Notification, window time.Duration) (core.Notification, bool, error) {
	now := d.now()
	recent, err := d.store.HasUnreadNotificationSince(ctx, n.UserID, n.Type, n.SubjectID, now.Add(-window))
	if err != nil {
		return core.Notification{}, false, fmt.Errorf("check recent %s: %w", n.Type, err)
	}
	if recent {
		slog.DebugContext(ctx, "Alert suppressed by dedup window",
			"user_id", n.UserID,
			"notification_type", n.Type,
			"subject_id", n.SubjectID)
		return core.Notification{}, false, nil
	}

	n.CreatedAt = now.UTC()
	created, err := d.notifications.Create(ctx, n)
	if err != nil {
		return core.Notification{}, false, err
	}
	return created, true, nil
}
