package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finwatch/internal/core"

	"github.com/shopspring/decimal"
)

// TransactionEventPublisher hands newly completed expenses to an asynchronous
// consumer that runs the per-transaction anomaly checks.
type TransactionEventPublisher interface {
	PublishTransactionCompleted(ctx context.Context, tx core.Transaction) error
}

// MonitorConfig wires the engine. Zero values fall back to defaults.
type MonitorConfig struct {
	Detector         DetectorConfig
	Location         *time.Location
	Clock            Clock
	SweepConcurrency int
	Alerts           AlertPublisher            // optional
	Events           TransactionEventPublisher // optional; anomaly checks run inline when nil
}

// Monitor is the entry point of the ledger consistency and monitoring engine.
type Monitor struct {
	store         Store
	ledger        *Ledger
	tracker       *BudgetTracker
	detector      *Detector
	notifications *Notifications
	recurring     *RecurringProcessor
	events        TransactionEventPublisher
	now           Clock
	loc           *time.Location
	concurrency   int
}

func NewMonitor(store Store, cfg MonitorConfig) *Monitor {
	if cfg.Clock == nil {
		cfg.Clock = systemClock
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SweepConcurrency < 1 {
		cfg.SweepConcurrency = 4
	}

	notifications := NewNotifications(store, cfg.Alerts, cfg.Clock)
	return &Monitor{
		store:         store,
		ledger:        NewLedger(store),
		tracker:       NewBudgetTracker(store, cfg.Clock, cfg.Location),
		detector:      NewDetector(store, notifications, cfg.Detector, cfg.Clock, cfg.Location),
		notifications: notifications,
		recurring:     NewRecurringProcessor(store, notifications, cfg.Location),
		events:        cfg.Events,
		now:           cfg.Clock,
		loc:           cfg.Location,
		concurrency:   cfg.SweepConcurrency,
	}
}

func (m *Monitor) Ledger() *Ledger                { return m.ledger }
func (m *Monitor) Tracker() *BudgetTracker        { return m.tracker }
func (m *Monitor) Detector() *Detector            { return m.detector }
func (m *Monitor) Notifications() *Notifications  { return m.notifications }
func (m *Monitor) Recurring() *RecurringProcessor { return m.recurring }
func (m *Monitor) Now() time.Time                 { return m.now() }

// OnTransactionWritten brings balances up to date after a transaction write
// and, for an expense that just became completed, runs or enqueues the
// anomaly checks. The caller holds the ledger lock of every account involved.
// tx is nil for a delete and previous is nil for a create.
func (m *Monitor) OnTransactionWritten(ctx context.Context, tx, previous *core.Transaction) error {
	if err := m.ledger.ApplyTransactionWrite(ctx, tx, previous); err != nil {
		return fmt.Errorf("apply transaction write: %w", err)
	}

	if tx == nil || tx.Type != core.Expense || !tx.IsCompleted() {
		return nil
	}
	if previous != nil && previous.IsCompleted() {
		return nil
	}

	if m.events != nil {
		err := m.events.PublishTransactionCompleted(ctx, *tx)
		if err == nil {
			return nil
		}
		slog.WarnContext(ctx, "Failed to publish transaction event, checking inline",
			"transaction_id", tx.ID,
			"error", err)
	}
	m.detector.CheckTransaction(ctx, *tx)
	return nil
}

// OnBudgetWritten recomputes the budget and evaluates its limit alerts.
// Alert failures are logged by the detector and not returned.
func (m *Monitor) OnBudgetWritten(ctx context.Context, b core.Budget) (core.Budget, error) {
	updated, err := m.tracker.RecomputeCurrentAmount(ctx, b.ID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("recompute budget: %w", err)
	}
	m.detector.CheckBudgetLimit(ctx, updated)
	return updated, nil
}

// AccountBalances lists the user's accounts with their ledger balances.
func (m *Monitor) AccountBalances(ctx context.Context, userID string) ([]core.AccountBalance, error) {
	accounts, err := m.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.AccountBalance, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, core.AccountBalance{
			AccountID: a.ID,
			Name:      a.Name,
			Kind:      a.Kind,
			Balance:   a.Balance,
			IsDefault: a.IsDefault,
		})
	}
	return out, nil
}

// BudgetConsumption lists the user's budgets with their cached consumption.
// It does not recompute.
func (m *Monitor) BudgetConsumption(ctx context.Context, userID string) ([]core.BudgetConsumption, error) {
	budgets, err := m.store.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.BudgetConsumption, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, core.BudgetConsumption{
			Budget:      b,
			Percentage:  core.UsagePercent(b.CurrentAmount, b.TargetAmount).Round(2),
			Remaining:   b.TargetAmount.Sub(b.CurrentAmount),
			PeriodStart: m.tracker.PeriodStart(b),
		})
	}
	return out, nil
}

// Summary combines balances, budget consumption and the unread alert count.
func (m *Monitor) Summary(ctx context.Context, userID string) (core.Summary, error) {
	accounts, err := m.AccountBalances(ctx, userID)
	if err != nil {
		return core.Summary{}, err
	}
	budgets, err := m.BudgetConsumption(ctx, userID)
	if err != nil {
		return core.Summary{}, err
	}
	unread, err := m.notifications.CountUnread(ctx, userID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("count unread: %w", err)
	}

	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}
	return core.Summary{
		TotalBalance: total,
		Accounts:     accounts,
		Budgets:      budgets,
		UnreadAlerts: unread,
	}, nil
}
