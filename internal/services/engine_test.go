package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"finwatch/internal/core"
	"finwatch/internal/storage"

	"github.com/shopspring/decimal"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEngine struct {
	store        Store
	repo         *storage.SQLiteRepository
	clock        *fakeClock
	monitor      *Monitor
	transactions *TransactionService
	accounts     *AccountService
	budgets      *BudgetService
}

// newTestEngine wires the engine against a fresh SQLite database with the
// clock at noon UTC on 15 March 2025. wrap, when set, decorates the store.
func newTestEngine(t *testing.T, wrap func(Store) Store) *testEngine {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	var store Store = repo
	if wrap != nil {
		store = wrap(store)
	}
	clock := &fakeClock{now: time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)}
	monitor := NewMonitor(store, MonitorConfig{Clock: clock.Now, Location: time.UTC, SweepConcurrency: 2})
	return &testEngine{
		store:        store,
		repo:         repo,
		clock:        clock,
		monitor:      monitor,
		transactions: NewTransactionService(store, monitor),
		accounts:     NewAccountService(store, monitor),
		budgets:      NewBudgetService(store, monitor),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (e *testEngine) account(t *testing.T, userID string) core.Account {
	t.Helper()
	a, err := e.accounts.Create(context.Background(), userID, AccountInput{Name: "Main", Kind: core.AccountCurrent})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func (e *testEngine) post(t *testing.T, userID string, in TransactionInput) core.Transaction {
	t.Helper()
	if in.Status == "" {
		in.Status = core.Completed
	}
	tx, err := e.transactions.Create(context.Background(), userID, in)
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

func (e *testEngine) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	a, err := e.store.GetAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return a.Balance
}

// assertLedger checks the cached balance against a fresh sum of completed
// transactions.
func (e *testEngine) assertLedger(t *testing.T, accountID, want string) {
	t.Helper()
	sum, err := e.store.SumCompletedSigned(context.Background(), accountID, "")
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	got := e.balance(t, accountID)
	if !got.Equal(sum) {
		t.Fatalf("balance %s drifted from completed sum %s", got, sum)
	}
	if !got.Equal(dec(want)) {
		t.Fatalf("balance = %s, want %s", got, want)
	}
}

func (e *testEngine) notifications(t *testing.T, userID string, typ core.NotificationType) []core.Notification {
	t.Helper()
	page, err := e.monitor.Notifications().Query(context.Background(), userID, core.NotificationFilter{Type: &typ}, 1, 100)
	if err != nil {
		t.Fatalf("query notifications: %v", err)
	}
	return page.Items
}

func bySubject(ns []core.Notification, subjectID string) []core.Notification {
	var out []core.Notification
	for _, n := range ns {
		if n.SubjectID == subjectID {
			out = append(out, n)
		}
	}
	return out
}

func TestLedger_BalanceTracksEveryWritePath(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)
	a := e.account(t, "u1")
	b := e.account(t, "u1")

	income := e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Income, Amount: dec("500.00")})
	e.assertLedger(t, a.ID, "500")

	pending := e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Expense, Amount: dec("120.50"), Status: core.Pending})
	e.assertLedger(t, a.ID, "500")

	completed := core.Completed
	if _, err := e.transactions.Update(ctx, "u1", pending.ID, TransactionPatch{Status: &completed}); err != nil {
		t.Fatalf("complete pending: %v", err)
	}
	e.assertLedger(t, a.ID, "379.50")

	amount := dec("100")
	if _, err := e.transactions.Update(ctx, "u1", pending.ID, TransactionPatch{Amount: &amount}); err != nil {
		t.Fatalf("change amount: %v", err)
	}
	e.assertLedger(t, a.ID, "400")

	// Moving a completed expense is validated against the destination account.
	if _, err := e.transactions.Update(ctx, "u1", pending.ID, TransactionPatch{AccountID: &b.ID}); !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("moving expense onto empty account should fail, got %v", err)
	}
	e.assertLedger(t, a.ID, "400")
	e.assertLedger(t, b.ID, "0")

	e.post(t, "u1", TransactionInput{AccountID: b.ID, Type: core.Income, Amount: dec("100")})
	if _, err := e.transactions.Update(ctx, "u1", pending.ID, TransactionPatch{AccountID: &b.ID}); err != nil {
		t.Fatalf("move expense: %v", err)
	}
	e.assertLedger(t, a.ID, "500")
	e.assertLedger(t, b.ID, "0")

	failed := core.Failed
	if _, err := e.transactions.Update(ctx, "u1", pending.ID, TransactionPatch{Status: &failed}); err != nil {
		t.Fatalf("fail expense: %v", err)
	}
	e.assertLedger(t, b.ID, "100")

	if err := e.transactions.Delete(ctx, "u1", income.ID); err != nil {
		t.Fatalf("delete income: %v", err)
	}
	e.assertLedger(t, a.ID, "0")

	for i := 0; i < 2; i++ {
		got, err := e.monitor.Ledger().RecomputeBalance(ctx, b.ID)
		if err != nil {
			t.Fatalf("recompute: %v", err)
		}
		if !got.Equal(dec("100")) {
			t.Fatalf("recompute #%d = %s, want 100", i+1, got)
		}
	}
}

func TestLedger_InsufficientFundsRejectsWrite(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)
	a := e.account(t, "u1")
	e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Income, Amount: dec("100")})

	_, err := e.transactions.Create(ctx, "u1", TransactionInput{
		AccountID: a.ID, Type: core.Expense, Amount: dec("150"), Status: core.Completed,
	})
	if !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	e.assertLedger(t, a.ID, "100")

	page, err := e.transactions.List(ctx, "u1", core.TransactionFilter{}, 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("rejected transaction was stored: total = %d", page.Total)
	}

	pending := e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Expense, Amount: dec("150"), Status: core.Pending})
	completed := core.Completed
	if _, err := e.transactions.Update(ctx, "u1", pending.ID, TransactionPatch{Status: &completed}); !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	e.assertLedger(t, a.ID, "100")

	stored, err := e.transactions.Get(ctx, "u1", pending.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != core.Pending {
		t.Fatalf("rejected update was stored: status = %s", stored.Status)
	}
}

func TestLedger_DeleteCompletedTransactionRecomputes(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)
	a := e.account(t, "u1")
	e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Income, Amount: dec("300")})
	spend := e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Expense, Amount: dec("75.25"), Category: "GROCERIES"})
	e.assertLedger(t, a.ID, "224.75")

	if err := e.transactions.Delete(ctx, "u1", spend.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	e.assertLedger(t, a.ID, "300")
}

func TestLedger_RecomputeMissingAccountIsNoop(t *testing.T) {
	e := newTestEngine(t, nil)
	if _, err := e.monitor.Ledger().RecomputeBalance(context.Background(), "gone"); err != nil {
		t.Fatalf("recompute on missing account: %v", err)
	}
}

func TestLedger_ConcurrentWritesNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)
	a := e.account(t, "u1")
	e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Income, Amount: dec("100")})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.transactions.Create(ctx, "u1", TransactionInput{
				AccountID: a.ID, Type: core.Expense, Amount: dec("10"), Status: core.Completed, Category: "OTHER",
			})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else if !errors.Is(err, core.ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted != 10 {
		t.Fatalf("accepted %d expenses, want 10", accepted)
	}
	e.assertLedger(t, a.ID, "0")
}

func TestTransactionService_OwnershipIsNotFound(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)
	a := e.account(t, "owner")
	tx := e.post(t, "owner", TransactionInput{AccountID: a.ID, Type: core.Income, Amount: dec("1")})

	if _, err := e.transactions.Create(ctx, "intruder", TransactionInput{AccountID: a.ID, Type: core.Income, Amount: dec("1")}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("create on foreign account: got %v", err)
	}
	if _, err := e.transactions.Get(ctx, "intruder", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get foreign transaction: got %v", err)
	}
	if err := e.transactions.Delete(ctx, "intruder", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete foreign transaction: got %v", err)
	}
	if _, err := e.transactions.Create(ctx, "owner", TransactionInput{AccountID: a.ID, Type: "GIFT", Amount: dec("1")}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("invalid type: got %v", err)
	}
}

func TestBudgetTracker_SumsAliasVariantsWithinPeriod(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)
	a := e.account(t, "u1")
	now := e.clock.Now()
	e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Income, Amount: dec("1000"), OccurredAt: now.AddDate(0, -2, 0)})

	e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Expense, Amount: dec("10"), Category: "GROCERIES", OccurredAt: now})
	e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Expense, Amount: dec("20"), Category: "Продукты", OccurredAt: now.AddDate(0, 0, -3)})
	e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Expense, Amount: dec("5.55"), Category: "Groceries", OccurredAt: now})
	// Outside the period, another category, not completed, not an expense, another user.
	e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Expense, Amount: dec("100"), Category: "GROCERIES", OccurredAt: now.AddDate(0, -1, 0)})
	e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Expense, Amount: dec("40"), Category: "TRANSPORT", OccurredAt: now})
	e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Expense, Amount: dec("7"), Category: "GROCERIES", OccurredAt: now, Status: core.Pending})
	e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Income, Amount: dec("50"), Category: "GROCERIES", OccurredAt: now})
	other := e.account(t, "u2")
	e.post(t, "u2", TransactionInput{AccountID: other.ID, Type: core.Income, Amount: dec("50"), OccurredAt: now})
	e.post(t, "u2", TransactionInput{AccountID: other.ID, Type: core.Expense, Amount: dec("9"), Category: "GROCERIES", OccurredAt: now})

	// Edges of the period: the last instant of March counts, April does not.
	// 17 March opens the next week but is still inside the month.
	e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Expense, Amount: dec("1"), Category: "GROCERIES",
		OccurredAt: time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)})
	e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Expense, Amount: dec("2"), Category: "GROCERIES",
		OccurredAt: time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)})
	e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Expense, Amount: dec("300"), Category: "GROCERIES",
		OccurredAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)})
	e.post(t, "u1", TransactionInput{AccountID: a.ID, Type: core.Expense, Amount: dec("500"), Category: "GROCERIES",
		OccurredAt: now.AddDate(0, 2, 0)})

	b, err := e.budgets.Create(ctx, "u1", BudgetInput{Name: "Food", Category: "Продукты", TargetAmount: dec("1000")})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	if b.Category != "GROCERIES" {
		t.Fatalf("budget category = %q, want GROCERIES", b.Category)
	}
	if !b.CurrentAmount.Equal(dec("38.55")) {
		t.Fatalf("current amount = %s, want 38.55", b.CurrentAmount)
	}

	again, err := e.monitor.Tracker().RecomputeCurrentAmount(ctx, b.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if !again.CurrentAmount.Equal(b.CurrentAmount) {
		t.Fatalf("recompute not idempotent: %s vs %s", again.CurrentAmount, b.CurrentAmount)
	}

	weekly := core.PeriodWeekly
	wb, err := e.budgets.Update(ctx, "u1", b.ID, BudgetPatch{Period: &weekly})
	if err != nil {
		t.Fatalf("update budget: %v", err)
	}
	// 15 March 2025 is a Saturday; the week started Monday 10 March.
	if !wb.CurrentAmount.Equal(dec("35.55")) {
		t.Fatalf("weekly current amount = %s, want 35.55", wb.CurrentAmount)
	}

	if _, err := e.monitor.Tracker().RecomputeCurrentAmount(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing budget: got %v", err)
	}
}

func TestBudgetService_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	tests := []struct {
		name string
		in   BudgetInput
	}{
		{"zero target", BudgetInput{Name: "Food", Category: "GROCERIES", TargetAmount: decimal.Zero}},
		{"negative target", BudgetInput{Name: "Food", Category: "GROCERIES", TargetAmount: dec("-5")}},
		{"unknown category", BudgetInput{Name: "Food", Category: "snacks", TargetAmount: dec("5")}},
		{"unknown period", BudgetInput{Name: "Food", Category: "GROCERIES", Period: "DECADE", TargetAmount: dec("5")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.budgets.Create(ctx, "u1", tt.in); !errors.Is(err, core.ErrValidation) {
				t.Fatalf("got %v, want ErrValidation", err)
			}
		})
	}
}
